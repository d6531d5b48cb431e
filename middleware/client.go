package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bitfsorg/x402-bch-go/x402"
)

// DefaultFacilitatorURL is used when no facilitator URL is configured.
const DefaultFacilitatorURL = "http://localhost:4040"

// FacilitatorClient calls a remote facilitator's verify, settle and
// supported endpoints.
type FacilitatorClient struct {
	// BaseURL is the facilitator server root, without the /facilitator
	// path prefix.
	BaseURL string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// NewFacilitatorClient creates a client for the facilitator at baseURL.
func NewFacilitatorClient(baseURL string) *FacilitatorClient {
	if baseURL == "" {
		baseURL = DefaultFacilitatorURL
	}
	return &FacilitatorClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *FacilitatorClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// facilitatorRequest mirrors the body the facilitator's verify and settle
// endpoints expect.
type facilitatorRequest struct {
	X402Version         int                       `json:"x402Version"`
	PaymentPayload      *x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *x402.PaymentRequirements `json:"paymentRequirements"`
}

// Verify asks the facilitator to verify a payment against requirements.
func (c *FacilitatorClient) Verify(ctx context.Context, payload *x402.PaymentPayload, reqs *x402.PaymentRequirements) (*x402.VerifyResult, error) {
	var result x402.VerifyResult
	if err := c.post(ctx, "/facilitator/verify", payload, reqs, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Settle asks the facilitator to settle a verified payment.
func (c *FacilitatorClient) Settle(ctx context.Context, payload *x402.PaymentPayload, reqs *x402.PaymentRequirements) (*x402.SettleResult, error) {
	var result x402.SettleResult
	if err := c.post(ctx, "/facilitator/settle", payload, reqs, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Supported queries the payment kinds the facilitator accepts.
func (c *FacilitatorClient) Supported(ctx context.Context) (*x402.SupportedKinds, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/facilitator/supported", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrFacilitatorStatus, resp.StatusCode)
	}

	var kinds x402.SupportedKinds
	if err := json.NewDecoder(resp.Body).Decode(&kinds); err != nil {
		return nil, fmt.Errorf("decode supported response: %w", err)
	}
	return &kinds, nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, payload *x402.PaymentPayload, reqs *x402.PaymentRequirements, out any) error {
	body, err := json.Marshal(facilitatorRequest{
		X402Version:         x402.Version,
		PaymentPayload:      payload,
		PaymentRequirements: reqs,
	})
	if err != nil {
		return fmt.Errorf("marshal facilitator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrFacilitatorStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode facilitator response: %w", err)
	}
	return nil
}
