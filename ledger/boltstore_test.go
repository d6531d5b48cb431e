package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "ledger", "utxo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltStore_RecordRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	record := &Record{
		UtxoID:              "deadbeef:0",
		TxID:                "deadbeef",
		Vout:                0,
		PayerAddress:        "bitcoincash:qpayer",
		ReceiverAddress:     "bitcoincash:qpayee",
		TransactionValueSat: 5000,
		RemainingBalanceSat: 4000,
		TotalDebitedSat:     1000,
		FirstSeen:           now,
		LastUpdated:         now,
		LastChecked:         now,
	}
	require.NoError(t, store.PutRecord(ctx, record))

	got, err := store.GetRecord(ctx, "deadbeef:0")
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestBoltStore_RecordNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetRecord(context.Background(), "missing:0")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestBoltStore_RecordUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := &Record{UtxoID: "deadbeef:0", TransactionValueSat: 5000, RemainingBalanceSat: 4000, TotalDebitedSat: 1000}
	require.NoError(t, store.PutRecord(ctx, record))

	record.RemainingBalanceSat = 3000
	record.TotalDebitedSat = 2000
	require.NoError(t, store.PutRecord(ctx, record))

	got, err := store.GetRecord(ctx, "deadbeef:0")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.RemainingBalanceSat)
	assert.Equal(t, int64(2000), got.TotalDebitedSat)
}

func TestBoltStore_NilRecord(t *testing.T) {
	store := openTestStore(t)
	assert.ErrorIs(t, store.PutRecord(context.Background(), nil), ErrNilParam)
	assert.ErrorIs(t, store.PutSettlement(context.Background(), nil), ErrNilParam)
}

func TestBoltStore_SettlementRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	settlement := &Settlement{
		AuthorizationID: "sig-base64",
		UtxoID:          "deadbeef:0",
		PayerAddress:    "bitcoincash:qpayer",
		PayTo:           "bitcoincash:qpayee",
		ValueSat:        1000,
		Status:          SettlementSettled,
		Transaction:     "feedbead",
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
		SettledAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.PutSettlement(ctx, settlement))

	got, err := store.GetSettlement(ctx, "sig-base64")
	require.NoError(t, err)
	assert.Equal(t, settlement, got)

	_, err = store.GetSettlement(ctx, "other-sig")
	assert.ErrorIs(t, err, ErrSettlementNotFound)
}

func TestBoltStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "utxo.db")
	ctx := context.Background()

	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PutRecord(ctx, &Record{UtxoID: "deadbeef:0", RemainingBalanceSat: 4000}))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRecord(ctx, "deadbeef:0")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), got.RemainingBalanceSat)
}
