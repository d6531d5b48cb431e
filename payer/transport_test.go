package payer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/x402-bch-go/chain"
	"github.com/bitfsorg/x402-bch-go/x402"
)

func newPayingClient(t *testing.T) (*http.Client, *atomic.Int64) {
	t.Helper()

	var sends atomic.Int64
	wallet := &chain.MockWallet{
		SendFn: func(context.Context, []chain.Output) (string, error) {
			sends.Add(1)
			return "batch-tx-1", nil
		},
	}
	p, err := NewPayer(Options{
		Wallet:         wallet,
		Signer:         &fakeSigner{addr: testPayerAddr},
		BatchSat:       2000,
		FundRetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return NewClient(p), &sends
}

// paidServer answers 402 until a well-formed X-PAYMENT header arrives.
func paidServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(x402.HeaderPayment)
		if header != "" {
			if _, err := x402.ParsePaymentHeader(header); err == nil {
				w.Write([]byte("paid content"))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(x402.PaymentRequired{
			X402Version: x402.Version,
			Error:       "X-PAYMENT header is required",
			Accepts: []x402.PaymentRequirements{{
				Scheme:            x402.SchemeUTXO,
				Network:           x402.NetworkBCH,
				MinAmountRequired: 1000,
				PayTo:             testPayTo,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTransport_PaysChallengeAndRetries(t *testing.T) {
	srv := paidServer(t)
	client, sends := newPayingClient(t)

	resp, err := client.Get(srv.URL + "/weather")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "paid content", string(body))
	assert.EqualValues(t, 1, sends.Load())
}

func TestTransport_SecondCallReusesBatch(t *testing.T) {
	srv := paidServer(t)
	client, sends := newPayingClient(t)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL + "/weather")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// 2000-sat batch covers both 1000-sat charges with one funding send.
	assert.EqualValues(t, 1, sends.Load())
}

func TestTransport_NonChallengePassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("free content"))
	}))
	t.Cleanup(srv.Close)
	client, sends := newPayingClient(t)

	resp, err := client.Get(srv.URL + "/free")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, sends.Load())
}

// A 402 without an accepts array is not an x402 challenge; the transport
// must return it unmodified, body intact.
func TestTransport_Plain402PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte("subscription expired"))
	}))
	t.Cleanup(srv.Close)
	client, sends := newPayingClient(t)

	resp, err := client.Get(srv.URL + "/premium")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "subscription expired", string(body))
	assert.EqualValues(t, 0, sends.Load())
}

// The transport retries exactly once: a server that keeps answering 402
// gets its second 402 surfaced to the caller instead of looping.
func TestTransport_RetriesExactlyOnce(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(x402.PaymentRequired{
			X402Version: x402.Version,
			Error:       "insufficient_utxo_balance",
			Accepts: []x402.PaymentRequirements{{
				Scheme:            x402.SchemeUTXO,
				Network:           x402.NetworkBCH,
				MinAmountRequired: 1000,
				PayTo:             testPayTo,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	client, _ := newPayingClient(t)

	resp, err := client.Get(srv.URL + "/weather")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.EqualValues(t, 2, hits.Load())
}

func TestTransport_NoMatchingRequirements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(x402.PaymentRequired{
			X402Version: x402.Version,
			Error:       "Payment required",
			Accepts: []x402.PaymentRequirements{{
				Scheme:  "exact",
				Network: "base-sepolia",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	client, _ := newPayingClient(t)

	resp, err := client.Get(srv.URL + "/weather")
	if resp != nil {
		resp.Body.Close()
	}
	require.ErrorIs(t, err, ErrNoRequirements)
}
