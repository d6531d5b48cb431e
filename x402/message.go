package x402

import (
	"encoding/json"
	"fmt"
)

// UtxoID builds the ledger key for an output: "{txid}:{vout}".
func UtxoID(txid string, vout uint32) string {
	return fmt.Sprintf("%s:%d", txid, vout)
}

// AuthorizationMessage returns the exact bytes the payer signs: the compact
// JSON serialization of the authorization with fields in declaration order
// (from, to, value, txid, vout, amount).
//
// This must match the serialization used by the client when signing, byte for
// byte, or signature verification will fail.
func AuthorizationMessage(auth *Authorization) ([]byte, error) {
	if auth == nil {
		return nil, ErrMissingAuthorization
	}
	msg, err := json.Marshal(auth)
	if err != nil {
		return nil, fmt.Errorf("x402: serialize authorization: %w", err)
	}
	return msg, nil
}
