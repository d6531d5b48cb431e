package signer

import (
	"encoding/base64"
	"fmt"

	bsm "github.com/bsv-blockchain/go-sdk/compat/bsm"
)

// Verifier checks that a signature was produced by the holder of an address's
// key over exactly the given message.
type Verifier interface {
	// Verify returns nil if signature (base64) is a valid signature by
	// address over message, and an error otherwise.
	Verify(address, signature string, message []byte) error
}

// BSMVerifier verifies Bitcoin Signed Message signatures.
type BSMVerifier struct{}

// Compile-time interface check.
var _ Verifier = BSMVerifier{}

// Verify checks a base64 compact signature against the address and message.
func (BSMVerifier) Verify(address, signature string, message []byte) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: decode signature: %w", ErrBadSignature, err)
	}
	if err := bsm.VerifyMessage(address, sig, message); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	return nil
}

// MockVerifier is a test double for Verifier.
type MockVerifier struct {
	VerifyFn func(address, signature string, message []byte) error
}

func (m *MockVerifier) Verify(address, signature string, message []byte) error {
	return m.VerifyFn(address, signature, message)
}
