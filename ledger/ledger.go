package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfsorg/x402-bch-go/chain"
	"github.com/bitfsorg/x402-bch-go/x402"
)

// Ledger is the UTXO debit engine. It turns a one-time on-chain deposit into
// a decrementing pay-as-you-go balance shared across HTTP calls.
//
// Every debit against one UTXO runs under a mutex keyed by utxoId, held
// across the whole read-compute-write sequence. Two concurrent debits against
// the same UTXO therefore observe a serialized order and can never both pass
// the sufficiency check from the same stale balance.
type Ledger struct {
	store  Store
	oracle chain.Oracle
	locks  *KeyedMutex
}

// NewLedger creates a debit ledger over the given store and chain oracle.
func NewLedger(store Store, oracle chain.Oracle) *Ledger {
	return &Ledger{
		store:  store,
		oracle: oracle,
		locks:  NewKeyedMutex(),
	}
}

// Debit charges chargeSat satoshis against the UTXO (txid, vout) and returns
// the updated record.
//
// On first touch the oracle is queried for the authoritative UTXO amount and
// a record is created; a first debit that fails the sufficiency check leaves
// no record behind, so a later smaller debit can still succeed. On repeat
// touch the stored balance is decremented. A debit that would drive the
// balance negative returns ErrInsufficientBalance and leaves the record
// unchanged. Oracle or store failures are returned as-is and never partially
// mutate the ledger.
func (l *Ledger) Debit(ctx context.Context, txid string, vout uint32, payerAddress string, chargeSat int64) (*Record, error) {
	if chargeSat < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCharge, chargeSat)
	}

	utxoID := x402.UtxoID(txid, vout)
	unlock := l.locks.Lock(utxoID)
	defer unlock()

	record, err := l.store.GetRecord(ctx, utxoID)
	switch {
	case err == nil:
		return l.debitExisting(ctx, record, chargeSat)
	case errors.Is(err, ErrRecordNotFound):
		return l.debitFirstTouch(ctx, utxoID, txid, vout, payerAddress, chargeSat)
	default:
		return nil, fmt.Errorf("ledger: read record %s: %w", utxoID, err)
	}
}

// debitFirstTouch validates the UTXO against the chain and creates the
// record. Called with the utxoId lock held.
func (l *Ledger) debitFirstTouch(ctx context.Context, utxoID, txid string, vout uint32, payerAddress string, chargeSat int64) (*Record, error) {
	info, err := l.oracle.QueryUTXO(ctx, txid, vout)
	if err != nil {
		return nil, fmt.Errorf("ledger: validate utxo %s: %w", utxoID, err)
	}

	remaining := info.AmountSat - chargeSat
	if remaining < 0 {
		// No record is created, so a later debit small enough to fit still
		// sees a first touch.
		return nil, fmt.Errorf("%w: utxo %s holds %d sat, charge is %d sat",
			ErrInsufficientBalance, utxoID, info.AmountSat, chargeSat)
	}

	now := time.Now().UTC()
	record := &Record{
		UtxoID:              utxoID,
		TxID:                txid,
		Vout:                vout,
		PayerAddress:        payerAddress,
		ReceiverAddress:     info.ReceiverAddress,
		TransactionValueSat: info.AmountSat,
		RemainingBalanceSat: remaining,
		TotalDebitedSat:     chargeSat,
		FirstSeen:           now,
		LastUpdated:         now,
		LastChecked:         now,
	}
	if err := l.store.PutRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("ledger: create record %s: %w", utxoID, err)
	}
	return record, nil
}

// debitExisting decrements the stored balance. Called with the utxoId lock
// held.
func (l *Ledger) debitExisting(ctx context.Context, record *Record, chargeSat int64) (*Record, error) {
	remaining := record.RemainingBalanceSat - chargeSat
	if remaining < 0 {
		return nil, fmt.Errorf("%w: utxo %s has %d sat remaining, charge is %d sat",
			ErrInsufficientBalance, record.UtxoID, record.RemainingBalanceSat, chargeSat)
	}

	now := time.Now().UTC()
	record.RemainingBalanceSat = remaining
	record.TotalDebitedSat += chargeSat
	record.LastUpdated = now
	record.LastChecked = now

	if err := l.store.PutRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("ledger: update record %s: %w", record.UtxoID, err)
	}
	return record, nil
}
