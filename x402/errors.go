package x402

import "errors"

var (
	// ErrMalformedHeader indicates the X-PAYMENT header is not valid JSON or
	// is missing a required field.
	ErrMalformedHeader = errors.New("x402: malformed payment header")

	// ErrMissingAuthorization indicates the payload carries no authorization.
	ErrMissingAuthorization = errors.New("x402: missing authorization")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("x402: nil parameter")
)
