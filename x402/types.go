// Package x402 defines the wire types of the x402 micropayment protocol for
// Bitcoin Cash.
//
// A resource server challenges unpaid requests with HTTP 402 and a
// machine-readable PaymentRequired body. The client retries with a signed
// PaymentPayload in the X-PAYMENT header. A facilitator verifies the payload
// and debits the referenced UTXO, and optionally settles the payment
// on-chain.
package x402

// Protocol constants for the BCH UTXO scheme.
const (
	// Version is the x402 protocol version this package implements.
	Version = 1

	// SchemeUTXO identifies the UTXO debit payment scheme.
	SchemeUTXO = "utxo"

	// NetworkBCH identifies the Bitcoin Cash network.
	NetworkBCH = "bch"

	// AssetBCH is the opaque asset identifier for native BCH.
	AssetBCH = "0x0000000000000000000000000000000000000001"
)

// PaymentRequirements is one acceptable payment option for a protected
// resource. It is offered in the "accepts" array of a 402 response and
// echoed back to the facilitator on verify and settle calls.
type PaymentRequirements struct {
	Scheme            string         `json:"scheme"`
	Network           string         `json:"network"`
	MinAmountRequired int64          `json:"minAmountRequired"` // satoshis
	Resource          string         `json:"resource"`
	Description       string         `json:"description"`
	MimeType          string         `json:"mimeType"`
	PayTo             string         `json:"payTo"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds"`
	Asset             string         `json:"asset"`
	OutputSchema      *OutputSchema  `json:"outputSchema,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// OutputSchema describes how the protected resource is invoked.
type OutputSchema struct {
	Input InputSchema `json:"input"`
}

// InputSchema describes the request shape of the protected resource.
type InputSchema struct {
	Type         string `json:"type"`
	Method       string `json:"method"`
	Discoverable bool   `json:"discoverable"`
}

// Authorization is the payer-signed statement committing a specific UTXO and
// amount to a specific payee.
//
// Field order matters: the signed message is the canonical JSON serialization
// of this struct (see AuthorizationMessage), so the declaration order must
// stay from, to, value, txid, vout, amount.
type Authorization struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Value  int64  `json:"value"`  // satoshis charged for this call
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Amount int64  `json:"amount"` // total UTXO size claimed by the client (advisory)
}

// UtxoID returns the ledger key identifying the referenced output.
func (a *Authorization) UtxoID() string {
	return UtxoID(a.TxID, a.Vout)
}

// SignedPayload carries an authorization together with its signature.
type SignedPayload struct {
	Signature     string         `json:"signature"` // base64 Bitcoin Signed Message
	Authorization *Authorization `json:"authorization"`
}

// PaymentPayload is the client-submitted payment, transmitted as a raw JSON
// string in the X-PAYMENT header.
type PaymentPayload struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Payload     *SignedPayload `json:"payload"`
}

// Payer returns the payer address from the payload, or "" if the payload is
// incomplete. Used for best-effort audit reporting on failures.
func (p *PaymentPayload) Payer() string {
	if p == nil || p.Payload == nil || p.Payload.Authorization == nil {
		return ""
	}
	return p.Payload.Authorization.From
}

// PaymentRequired is the 402 response body. Accepts is always populated so
// the client can retry cleanly, even when the submitted header was malformed.
type PaymentRequired struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error"`
	Accepts     []PaymentRequirements `json:"accepts"`
	Payer       string                `json:"payer,omitempty"`
}

// VerifyResult is the facilitator's verdict on a payment authorization.
type VerifyResult struct {
	IsValid       bool   `json:"isValid"`
	Payer         string `json:"payer"`
	InvalidReason string `json:"invalidReason,omitempty"`
	UtxoID        string `json:"utxoId,omitempty"`
}

// SettleResult is the facilitator's verdict on settling a payment on-chain.
type SettleResult struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// SupportedKind describes one payment kind a facilitator supports.
type SupportedKind struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
}

// SupportedKinds is the response body of GET /facilitator/supported.
type SupportedKinds struct {
	Kinds []SupportedKind `json:"kinds"`
}
