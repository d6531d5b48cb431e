package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// x402 HTTP header names.
const (
	// HeaderPayment carries the PaymentPayload as a raw JSON string.
	HeaderPayment = "X-PAYMENT"

	// HeaderPaymentResponse carries the base64-encoded SettleResult on the
	// response of a settled request.
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"
)

// EncodePaymentHeader serializes a PaymentPayload for the X-PAYMENT header.
// BCH uses a raw JSON string, not a base64 encoding.
func EncodePaymentHeader(payload *PaymentPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("%w: payload", ErrNilParam)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("x402: marshal payment header: %w", err)
	}
	return string(data), nil
}

// ParsePaymentHeader decodes and validates an X-PAYMENT header value.
// The fields x402Version, scheme, network and payload are all required;
// a header missing any of them is malformed.
func ParsePaymentHeader(header string) (*PaymentPayload, error) {
	var payload PaymentPayload
	if err := json.Unmarshal([]byte(header), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	if payload.X402Version == 0 {
		return nil, fmt.Errorf("%w: missing x402Version", ErrMalformedHeader)
	}
	if payload.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrMalformedHeader)
	}
	if payload.Network == "" {
		return nil, fmt.Errorf("%w: missing network", ErrMalformedHeader)
	}
	if payload.Payload == nil {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformedHeader)
	}
	return &payload, nil
}

// EncodeSettleHeader serializes a SettleResult for the X-PAYMENT-RESPONSE
// header as base64-encoded JSON.
func EncodeSettleHeader(result *SettleResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("%w: settle result", ErrNilParam)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("x402: marshal settle header: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSettleHeader parses an X-PAYMENT-RESPONSE header value.
func DecodeSettleHeader(header string) (*SettleResult, error) {
	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("x402: decode settle header: %w", err)
	}
	var result SettleResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("x402: unmarshal settle header: %w", err)
	}
	return &result, nil
}
