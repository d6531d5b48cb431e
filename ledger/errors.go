package ledger

import "errors"

var (
	// ErrRecordNotFound indicates no debit record exists for the UTXO. This
	// is an expected condition on first touch, distinct from a store failure.
	ErrRecordNotFound = errors.New("ledger: record not found")

	// ErrSettlementNotFound indicates no settlement exists for the
	// authorization.
	ErrSettlementNotFound = errors.New("ledger: settlement not found")

	// ErrInsufficientBalance indicates the debit would drive the remaining
	// balance below zero. The stored record is left unchanged.
	ErrInsufficientBalance = errors.New("ledger: insufficient utxo balance")

	// ErrNegativeCharge indicates a debit was requested with a negative
	// charge amount.
	ErrNegativeCharge = errors.New("ledger: negative charge amount")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("ledger: nil parameter")
)
