package signer

import (
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/x402-bch-go/x402"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	privKey, err := ec.NewPrivateKey()
	require.NoError(t, err)
	s, err := NewSignerFromKey(privKey)
	require.NoError(t, err)
	return s
}

func TestNewSigner_InvalidWIF(t *testing.T) {
	_, err := NewSigner("not-a-wif")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewSigner_FromWIF(t *testing.T) {
	privKey, err := ec.NewPrivateKey()
	require.NoError(t, err)

	fromWif, err := NewSigner(privKey.Wif())
	require.NoError(t, err)
	fromKey, err := NewSignerFromKey(privKey)
	require.NoError(t, err)

	assert.NotEmpty(t, fromWif.Address())
	assert.Equal(t, fromKey.Address(), fromWif.Address())
}

func TestSignAndVerifyMessage(t *testing.T) {
	s := newTestSigner(t)
	message := []byte("pay the weather API 1000 sats")

	sig, err := s.SignMessage(message)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	v := BSMVerifier{}
	assert.NoError(t, v.Verify(s.Address(), sig, message))
}

func TestVerify_TamperedMessage(t *testing.T) {
	s := newTestSigner(t)

	sig, err := s.SignMessage([]byte("original message"))
	require.NoError(t, err)

	err = BSMVerifier{}.Verify(s.Address(), sig, []byte("tampered message"))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_WrongAddress(t *testing.T) {
	s := newTestSigner(t)
	other := newTestSigner(t)
	message := []byte("message")

	sig, err := s.SignMessage(message)
	require.NoError(t, err)

	err = BSMVerifier{}.Verify(other.Address(), sig, message)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_NotBase64(t *testing.T) {
	err := BSMVerifier{}.Verify("someaddress", "%%%", []byte("m"))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestSignAuthorization(t *testing.T) {
	s := newTestSigner(t)

	auth := &x402.Authorization{
		From:   s.Address(),
		To:     "bitcoincash:qpayee",
		Value:  1000,
		TxID:   "deadbeef",
		Vout:   0,
		Amount: 5000,
	}

	sig, err := s.SignAuthorization(auth)
	require.NoError(t, err)

	// The signature covers the canonical serialization bytes.
	message, err := x402.AuthorizationMessage(auth)
	require.NoError(t, err)
	assert.NoError(t, BSMVerifier{}.Verify(s.Address(), sig, message))

	// Any change to the authorization invalidates the signature.
	auth.Value = 2000
	tampered, err := x402.AuthorizationMessage(auth)
	require.NoError(t, err)
	assert.ErrorIs(t, BSMVerifier{}.Verify(s.Address(), sig, tampered), ErrBadSignature)
}

func TestSignAuthorization_AddressMismatch(t *testing.T) {
	s := newTestSigner(t)

	_, err := s.SignAuthorization(&x402.Authorization{From: "bitcoincash:qsomeoneelse"})
	assert.ErrorIs(t, err, ErrAddressMismatch)
}

func TestSignAuthorization_Nil(t *testing.T) {
	s := newTestSigner(t)

	_, err := s.SignAuthorization(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}
