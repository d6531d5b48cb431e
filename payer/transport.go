package payer

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/bitfsorg/x402-bch-go/x402"
)

// maxChallengeBody bounds how much of a 402 body is read when looking for
// payment requirements.
const maxChallengeBody = 1 << 20

// Transport is an http.RoundTripper that answers 402 challenges. When a
// request comes back with 402 and a parseable accepts array, it authorizes a
// payment, attaches the X-PAYMENT header and retries the request exactly
// once. Any other response passes through untouched.
type Transport struct {
	// Base performs the actual requests. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	// Payer authorizes payments. Required.
	Payer *Payer
}

// NewTransport wraps base with automatic 402 payment handling.
func NewTransport(p *Payer, base http.RoundTripper) *Transport {
	return &Transport{Base: base, Payer: p}
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusPaymentRequired {
		return resp, err
	}

	// A request body that cannot be replayed cannot be retried.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeBody))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var challenge x402.PaymentRequired
	if err := json.Unmarshal(body, &challenge); err != nil || len(challenge.Accepts) == 0 {
		// Not an x402 challenge; hand the response back as received.
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	selected := selectRequirements(challenge.Accepts)
	if selected == nil {
		return nil, ErrNoRequirements
	}

	payload, err := t.Payer.Authorize(req.Context(), selected)
	if err != nil {
		return nil, err
	}
	header, err := x402.EncodePaymentHeader(payload)
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		retry.Body, err = req.GetBody()
		if err != nil {
			return nil, err
		}
	}
	retry.Header.Set(x402.HeaderPayment, header)

	return t.base().RoundTrip(retry)
}

// selectRequirements picks the first requirement for the BCH UTXO scheme.
func selectRequirements(accepts []x402.PaymentRequirements) *x402.PaymentRequirements {
	for i := range accepts {
		if accepts[i].Scheme == x402.SchemeUTXO && accepts[i].Network == x402.NetworkBCH {
			return &accepts[i]
		}
	}
	return nil
}

// NewClient returns an http.Client whose transport pays 402 challenges with
// the given payer.
func NewClient(p *Payer) *http.Client {
	return &http.Client{Transport: NewTransport(p, nil)}
}
