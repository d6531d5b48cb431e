package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/x402-bch-go/chain"
)

const (
	testTxID  = "b74dcfc839eb3693be811be64e563171d83e191388fdda900f2d3b952df01ba7"
	testPayer = "bitcoincash:qz9s2mccqamzppfq708cyfde5ejgmsr9hy7r3unmkk"
	testPayee = "bitcoincash:qqlrzp23w08434twmvr4fxw672whkjy0py26r63g3d"
)

// fixedOracle reports every queried UTXO as holding amountSat.
func fixedOracle(amountSat int64) *chain.MockOracle {
	return &chain.MockOracle{
		QueryUTXOFn: func(_ context.Context, txid string, vout uint32) (*chain.UtxoInfo, error) {
			return &chain.UtxoInfo{
				TxID:            txid,
				Vout:            vout,
				AmountSat:       amountSat,
				ReceiverAddress: testPayee,
			}, nil
		},
	}
}

func TestLedger_FirstTouch(t *testing.T) {
	store := NewMemStore()
	l := NewLedger(store, fixedOracle(5000))

	record, err := l.Debit(context.Background(), testTxID, 0, testPayer, 1000)
	require.NoError(t, err)

	assert.Equal(t, testTxID+":0", record.UtxoID)
	assert.Equal(t, testPayer, record.PayerAddress)
	assert.Equal(t, testPayee, record.ReceiverAddress)
	assert.Equal(t, int64(5000), record.TransactionValueSat)
	assert.Equal(t, int64(4000), record.RemainingBalanceSat)
	assert.Equal(t, int64(1000), record.TotalDebitedSat)
	assert.False(t, record.FirstSeen.IsZero())

	stored, err := store.GetRecord(context.Background(), record.UtxoID)
	require.NoError(t, err)
	assert.Equal(t, record, stored)
}

// A 5000 sat UTXO covers exactly five 1000 sat calls; the sixth is rejected
// and leaves the record unchanged at zero.
func TestLedger_ExhaustionSequence(t *testing.T) {
	store := NewMemStore()
	l := NewLedger(store, fixedOracle(5000))
	ctx := context.Background()

	for i, wantRemaining := range []int64{4000, 3000, 2000, 1000, 0} {
		record, err := l.Debit(ctx, testTxID, 0, testPayer, 1000)
		require.NoError(t, err, "debit %d", i+1)
		assert.Equal(t, wantRemaining, record.RemainingBalanceSat)

		// Balance conservation after every step.
		assert.Equal(t, record.TransactionValueSat,
			record.RemainingBalanceSat+record.TotalDebitedSat)
	}

	_, err := l.Debit(ctx, testTxID, 0, testPayer, 1000)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	record, err := store.GetRecord(ctx, testTxID+":0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.RemainingBalanceSat)
	assert.Equal(t, int64(5000), record.TotalDebitedSat)
}

// A first debit that fails sufficiency must not pollute the ledger: a later,
// smaller debit against the same UTXO still succeeds as a first touch.
func TestLedger_FirstTouchNonPollution(t *testing.T) {
	store := NewMemStore()
	l := NewLedger(store, fixedOracle(500))
	ctx := context.Background()

	_, err := l.Debit(ctx, testTxID, 0, testPayer, 1000)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = store.GetRecord(ctx, testTxID+":0")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	record, err := l.Debit(ctx, testTxID, 0, testPayer, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(100), record.RemainingBalanceSat)
}

func TestLedger_NegativeCharge(t *testing.T) {
	l := NewLedger(NewMemStore(), fixedOracle(5000))

	_, err := l.Debit(context.Background(), testTxID, 0, testPayer, -1)
	assert.ErrorIs(t, err, ErrNegativeCharge)
}

func TestLedger_ZeroCharge(t *testing.T) {
	l := NewLedger(NewMemStore(), fixedOracle(5000))

	record, err := l.Debit(context.Background(), testTxID, 0, testPayer, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), record.RemainingBalanceSat)
	assert.Equal(t, int64(0), record.TotalDebitedSat)
}

func TestLedger_OracleFailure(t *testing.T) {
	oracle := &chain.MockOracle{
		QueryUTXOFn: func(context.Context, string, uint32) (*chain.UtxoInfo, error) {
			return nil, chain.ErrConnectionFailed
		},
	}
	store := NewMemStore()
	l := NewLedger(store, oracle)

	_, err := l.Debit(context.Background(), testTxID, 0, testPayer, 1000)
	assert.ErrorIs(t, err, chain.ErrConnectionFailed)

	// Failure must not partially mutate the ledger.
	_, err = store.GetRecord(context.Background(), testTxID+":0")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLedger_SpentUtxo(t *testing.T) {
	oracle := &chain.MockOracle{
		QueryUTXOFn: func(context.Context, string, uint32) (*chain.UtxoInfo, error) {
			return nil, chain.ErrUtxoNotFound
		},
	}
	l := NewLedger(NewMemStore(), oracle)

	_, err := l.Debit(context.Background(), testTxID, 0, testPayer, 1000)
	assert.ErrorIs(t, err, chain.ErrUtxoNotFound)
}

// Two concurrent 3000 sat debits against a fresh 5000 sat UTXO: exactly one
// succeeds and the total recorded debit never exceeds the UTXO value.
func TestLedger_ConcurrentDebits_NoOverspend(t *testing.T) {
	store := NewMemStore()
	l := NewLedger(store, fixedOracle(5000))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Debit(ctx, testTxID, 0, testPayer, 3000)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the two debits must fail")

	record, err := store.GetRecord(ctx, testTxID+":0")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), record.RemainingBalanceSat)
	assert.Equal(t, int64(3000), record.TotalDebitedSat)
}

// Many concurrent debits: the sum of successful charges never exceeds the
// UTXO value, and the invariant holds at the end.
func TestLedger_ConcurrentDebits_Stress(t *testing.T) {
	store := NewMemStore()
	l := NewLedger(store, fixedOracle(10000))
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = l.Debit(ctx, testTxID, 0, testPayer, 1000)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 10, succeeded)

	record, err := store.GetRecord(ctx, testTxID+":0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.RemainingBalanceSat)
	assert.Equal(t, int64(10000), record.TotalDebitedSat)
}

// Separate UTXOs are debited independently.
func TestLedger_IndependentUtxos(t *testing.T) {
	store := NewMemStore()
	l := NewLedger(store, fixedOracle(5000))
	ctx := context.Background()

	a, err := l.Debit(ctx, testTxID, 0, testPayer, 1000)
	require.NoError(t, err)
	b, err := l.Debit(ctx, testTxID, 1, testPayer, 2000)
	require.NoError(t, err)

	assert.Equal(t, int64(4000), a.RemainingBalanceSat)
	assert.Equal(t, int64(3000), b.RemainingBalanceSat)
}

// failingStore wraps MemStore to fail writes.
type failingStore struct {
	*MemStore
	putErr error
}

func (s *failingStore) PutRecord(ctx context.Context, record *Record) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemStore.PutRecord(ctx, record)
}

func TestLedger_StoreWriteFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	store := &failingStore{MemStore: NewMemStore(), putErr: storeErr}
	l := NewLedger(store, fixedOracle(5000))

	_, err := l.Debit(context.Background(), testTxID, 0, testPayer, 1000)
	assert.ErrorIs(t, err, storeErr)
}

func TestKeyedMutex(t *testing.T) {
	km := NewKeyedMutex()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("key")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	// Different keys do not block each other: lock one key, then take another.
	unlockA := km.Lock("a")
	unlockB := km.Lock("b")
	unlockB()
	unlockA()
}
