package signer

import "errors"

var (
	// ErrInvalidKey indicates the private key could not be parsed.
	ErrInvalidKey = errors.New("signer: invalid private key")

	// ErrSigningFailed indicates message signing failed.
	ErrSigningFailed = errors.New("signer: signing failed")

	// ErrBadSignature indicates the signature does not verify against the
	// address and message.
	ErrBadSignature = errors.New("signer: bad signature")

	// ErrAddressMismatch indicates the authorization's from address does not
	// match the signing key.
	ErrAddressMismatch = errors.New("signer: address mismatch")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("signer: nil parameter")
)
