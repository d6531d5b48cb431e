// Package middleware gates net/http handlers behind x402 payments for
// Bitcoin Cash. Protected routes answer 402 with payment requirements until
// the client retries with a verifiable X-PAYMENT header; verification is
// delegated to a facilitator service.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bitfsorg/x402-bch-go/x402"
)

// Config configures the payment middleware.
type Config struct {
	// PayTo is the BCH address receiving payments for the protected
	// resources. Required.
	PayTo string

	// Routes maps "VERB /path" patterns to payment terms. Requests not
	// matching any pattern pass through unpaid.
	Routes map[string]RouteConfig

	// FacilitatorURL is the facilitator server root. Defaults to
	// DefaultFacilitatorURL.
	FacilitatorURL string

	// Client overrides the facilitator client built from FacilitatorURL.
	Client *FacilitatorClient

	// Settle, when true, settles the payment on-chain after the handler
	// succeeds and attaches the result as the X-PAYMENT-RESPONSE header.
	// When false the middleware only verifies.
	Settle bool

	Logger *slog.Logger
}

type contextKey string

// paymentContextKey stores the verify result of a paid request.
const paymentContextKey = contextKey("x402-payment")

// VerificationFromContext returns the facilitator's verify result for a paid
// request, or nil when the request was not payment-gated.
func VerificationFromContext(ctx context.Context) *x402.VerifyResult {
	v, _ := ctx.Value(paymentContextKey).(*x402.VerifyResult)
	return v
}

// NewPaymentMiddleware compiles the route table and returns a middleware
// wrapping handlers with payment gating.
func NewPaymentMiddleware(cfg Config) (func(http.Handler) http.Handler, error) {
	if cfg.PayTo == "" {
		return nil, ErrMissingPayTo
	}

	table, err := CompileRoutes(cfg.Routes)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = NewFacilitatorClient(cfg.FacilitatorURL)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	m := &paymentGate{
		payTo:  cfg.PayTo,
		table:  table,
		client: client,
		settle: cfg.Settle,
		log:    log,
	}
	return m.wrap, nil
}

type paymentGate struct {
	payTo  string
	table  *RouteTable
	client *FacilitatorClient
	settle bool
	log    *slog.Logger
}

func (m *paymentGate) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routeCfg, ok := m.table.Match(r.Method, r.URL.RequestURI())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		accepts := routeCfg.Requirements(r, m.payTo)

		header := r.Header.Get(x402.HeaderPayment)
		if header == "" {
			m.log.Info("payment required", "method", r.Method, "path", r.URL.Path)
			writePaymentRequired(w, accepts, "X-PAYMENT header is required", "")
			return
		}

		payload, err := x402.ParsePaymentHeader(header)
		if err != nil {
			m.log.Info("malformed payment header", "path", r.URL.Path, "err", err)
			writePaymentRequired(w, accepts, "Invalid or malformed payment header", "")
			return
		}

		selected := SelectRequirements(accepts, payload.Scheme, payload.Network)
		if selected == nil {
			writePaymentRequired(w, accepts, "Unable to find matching payment requirements", "")
			return
		}

		verification, err := m.client.Verify(r.Context(), payload, selected)
		if err != nil {
			// The facilitator being down is still a payment failure from the
			// client's point of view; the challenge stays retryable.
			m.log.Error("facilitator verify failed", "err", err)
			writePaymentRequired(w, accepts, "Payment verification failed", "")
			return
		}
		if !verification.IsValid {
			m.log.Info("payment rejected", "payer", verification.Payer, "reason", verification.InvalidReason)
			writePaymentRequired(w, accepts, verification.InvalidReason, verification.Payer)
			return
		}

		m.log.Info("payment verified", "payer", verification.Payer, "path", r.URL.Path)
		r = r.WithContext(context.WithValue(r.Context(), paymentContextKey, verification))

		if !m.settle {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(&settleWriter{
			ResponseWriter: w,
			settle: func() bool {
				return m.settlePayment(w, r, payload, selected, accepts)
			},
		}, r)
	})
}

// settlePayment runs once the handler commits a success status. It returns
// false when the settle failed, in which case the 402 has already been
// written.
func (m *paymentGate) settlePayment(w http.ResponseWriter, r *http.Request, payload *x402.PaymentPayload, selected *x402.PaymentRequirements, accepts []x402.PaymentRequirements) bool {
	result, err := m.client.Settle(r.Context(), payload, selected)
	if err != nil {
		m.log.Error("facilitator settle failed", "err", err)
		writePaymentRequired(w, accepts, "Payment settlement failed", "")
		return false
	}
	if !result.Success {
		m.log.Info("settlement rejected", "payer", result.Payer, "reason", result.ErrorReason)
		writePaymentRequired(w, accepts, result.ErrorReason, result.Payer)
		return false
	}

	encoded, err := x402.EncodeSettleHeader(result)
	if err != nil {
		m.log.Error("encode settle header", "err", err)
		return true
	}
	w.Header().Set(x402.HeaderPaymentResponse, encoded)
	w.Header().Add("Access-Control-Expose-Headers", x402.HeaderPaymentResponse)
	m.log.Info("payment settled", "payer", result.Payer, "transaction", result.Transaction)
	return true
}

// SelectRequirements picks the first requirement matching the payload's
// scheme and network.
func SelectRequirements(accepts []x402.PaymentRequirements, scheme, network string) *x402.PaymentRequirements {
	for i := range accepts {
		if accepts[i].Scheme == scheme && accepts[i].Network == network {
			return &accepts[i]
		}
	}
	return nil
}

// writePaymentRequired answers 402 with the accepts array so the client can
// retry, whatever went wrong.
func writePaymentRequired(w http.ResponseWriter, accepts []x402.PaymentRequirements, errMsg, payer string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(x402.PaymentRequired{
		X402Version: x402.Version,
		Error:       errMsg,
		Accepts:     accepts,
		Payer:       payer,
	})
}

// settleWriter delays the handler's success status until the payment is
// settled. Error statuses pass through unsettled; if the settle fails, the
// handler's output is discarded because the 402 body was already written.
type settleWriter struct {
	http.ResponseWriter
	settle    func() bool
	committed bool
	discard   bool
}

func (sw *settleWriter) WriteHeader(status int) {
	if sw.committed {
		return
	}
	sw.committed = true

	if status >= 400 {
		sw.ResponseWriter.WriteHeader(status)
		return
	}
	if !sw.settle() {
		sw.discard = true
		return
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *settleWriter) Write(b []byte) (int, error) {
	if !sw.committed {
		sw.WriteHeader(http.StatusOK)
	}
	if sw.discard {
		return len(b), nil
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *settleWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
