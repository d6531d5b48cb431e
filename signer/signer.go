// Package signer binds payment authorizations to payer identities using the
// Bitcoin Signed Message scheme.
//
// The Signer is held by the payer and produces base64 compact signatures over
// the canonical authorization serialization; the Verifier is held by the
// facilitator and checks a signature against the claimed payer address.
package signer

import (
	"encoding/base64"
	"fmt"

	bsm "github.com/bsv-blockchain/go-sdk/compat/bsm"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/x402-bch-go/x402"
)

// Signer signs payment authorizations with a private key.
type Signer struct {
	privateKey *ec.PrivateKey
	address    string
}

// NewSigner creates a signer from a private key in WIF format.
func NewSigner(wif string) (*Signer, error) {
	privKey, err := ec.PrivateKeyFromWif(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return NewSignerFromKey(privKey)
}

// NewSignerFromKey creates a signer from an existing private key.
func NewSignerFromKey(privKey *ec.PrivateKey) (*Signer, error) {
	if privKey == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(privKey.PubKey(), true)
	if err != nil {
		return nil, fmt.Errorf("signer: derive address: %w", err)
	}
	return &Signer{
		privateKey: privKey,
		address:    addr.AddressString,
	}, nil
}

// Address returns the payer address derived from the signing key.
func (s *Signer) Address() string { return s.address }

// SignMessage signs arbitrary message bytes and returns the base64-encoded
// compact signature.
func (s *Signer) SignMessage(message []byte) (string, error) {
	sig, err := bsm.SignMessage(s.privateKey, message)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignAuthorization signs the canonical serialization of an authorization.
// The authorization's From field must match the signer's address.
func (s *Signer) SignAuthorization(auth *x402.Authorization) (string, error) {
	if auth == nil {
		return "", fmt.Errorf("%w: authorization", ErrNilParam)
	}
	if auth.From != s.address {
		return "", fmt.Errorf("%w: authorization is from %s, signer is %s",
			ErrAddressMismatch, auth.From, s.address)
	}
	message, err := x402.AuthorizationMessage(auth)
	if err != nil {
		return "", err
	}
	return s.SignMessage(message)
}
