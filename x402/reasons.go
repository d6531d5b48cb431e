package x402

// Reason codes surfaced to callers in VerifyResult.InvalidReason and
// SettleResult.ErrorReason. These are stable wire strings, never free-form
// error text.
const (
	ReasonInvalidNetwork            = "invalid_network"
	ReasonInvalidScheme             = "invalid_scheme"
	ReasonInvalidPayload            = "invalid_payload"
	ReasonMissingAuthorization      = "missing_authorization"
	ReasonInvalidSignature          = "invalid_exact_bch_payload_signature"
	ReasonInsufficientUtxoBalance   = "insufficient_utxo_balance"
	ReasonUnexpectedUtxoValidation  = "unexpected_utxo_validation_error"
	ReasonUnexpectedVerifyError     = "unexpected_verify_error"
	ReasonInsufficientFunds         = "insufficient_funds"
	ReasonInvalidTransactionState   = "invalid_transaction_state"
	ReasonUnexpectedSettleError     = "unexpected_settle_error"
)
