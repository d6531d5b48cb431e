package payer

import "errors"

var (
	// ErrNoRequirements is returned when a 402 response offers no payment
	// requirement for the BCH UTXO scheme.
	ErrNoRequirements = errors.New("payer: no matching payment requirements")

	// ErrBatchTooSmall is returned when the configured batch amount cannot
	// cover a single charge.
	ErrBatchTooSmall = errors.New("payer: batch amount smaller than charge")

	// ErrFundingFailed is returned when the funding payment could not be
	// broadcast after all retries.
	ErrFundingFailed = errors.New("payer: funding payment failed")

	// ErrNilParam is returned when a required parameter is nil.
	ErrNilParam = errors.New("payer: nil parameter")
)
