// Package payer implements the client side of the x402 BCH scheme: funding
// batch UTXOs, signing payment authorizations and retrying 402-challenged
// requests with an X-PAYMENT header.
//
// A payer funds one batch UTXO at a time by paying the resource server's
// address, then spends it down across requests. Each request debits the
// batch by the charged amount; when the remainder cannot cover the next
// charge, a fresh batch is funded.
package payer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bitfsorg/x402-bch-go/chain"
	"github.com/bitfsorg/x402-bch-go/x402"
)

// DefaultBatchSat is the default size of a funding payment, in satoshis.
const DefaultBatchSat = 2000

// DefaultFundAttempts bounds retries of the funding broadcast.
const DefaultFundAttempts = 3

// AuthSigner signs payment authorizations on behalf of an address.
// *signer.Signer satisfies it.
type AuthSigner interface {
	Address() string
	SignAuthorization(auth *x402.Authorization) (string, error)
}

// Options configures a Payer. Wallet and Signer are required.
type Options struct {
	// Wallet broadcasts funding payments.
	Wallet chain.Wallet

	// Signer signs payment authorizations.
	Signer AuthSigner

	// BatchSat is the size of each funding payment. Defaults to
	// DefaultBatchSat.
	BatchSat int64

	// FundAttempts bounds retries of the funding broadcast. Defaults to
	// DefaultFundAttempts.
	FundAttempts int

	// FundRetryDelay is the pause between funding attempts. Defaults to
	// one second.
	FundRetryDelay time.Duration

	Logger *slog.Logger
}

// batchUTXO tracks the output currently being spent down.
type batchUTXO struct {
	txid     string
	vout     uint32
	satsLeft int64
}

// Payer produces signed payment payloads against a batch UTXO.
type Payer struct {
	wallet       chain.Wallet
	signer       AuthSigner
	batchSat     int64
	fundAttempts int
	fundDelay    time.Duration
	log          *slog.Logger

	mu      sync.Mutex
	current *batchUTXO
}

// NewPayer creates a payer.
func NewPayer(opts Options) (*Payer, error) {
	if opts.Wallet == nil {
		return nil, fmt.Errorf("%w: wallet", ErrNilParam)
	}
	if opts.Signer == nil {
		return nil, fmt.Errorf("%w: signer", ErrNilParam)
	}
	batch := opts.BatchSat
	if batch <= 0 {
		batch = DefaultBatchSat
	}
	attempts := opts.FundAttempts
	if attempts <= 0 {
		attempts = DefaultFundAttempts
	}
	delay := opts.FundRetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Payer{
		wallet:       opts.Wallet,
		signer:       opts.Signer,
		batchSat:     batch,
		fundAttempts: attempts,
		fundDelay:    delay,
		log:          log,
	}, nil
}

// Authorize produces a signed payment payload covering one charge of the
// given requirements. It reuses the current batch UTXO when its remainder
// covers the charge, otherwise it funds a new batch first.
func (p *Payer) Authorize(ctx context.Context, reqs *x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	if reqs == nil {
		return nil, fmt.Errorf("%w: requirements", ErrNilParam)
	}
	cost := reqs.MinAmountRequired
	if cost <= 0 {
		cost = 1
	}
	if cost > p.batchSat {
		return nil, fmt.Errorf("%w: charge %d, batch %d", ErrBatchTooSmall, cost, p.batchSat)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || p.current.satsLeft < cost {
		txid, err := p.fund(ctx, reqs.PayTo)
		if err != nil {
			return nil, err
		}
		p.current = &batchUTXO{txid: txid, vout: 0, satsLeft: p.batchSat}
		p.log.Info("funded new batch", "txid", txid, "sats", p.batchSat)
	}
	p.current.satsLeft -= cost

	auth := &x402.Authorization{
		From:   p.signer.Address(),
		To:     reqs.PayTo,
		Value:  cost,
		TxID:   p.current.txid,
		Vout:   p.current.vout,
		Amount: p.batchSat,
	}
	sig, err := p.signer.SignAuthorization(auth)
	if err != nil {
		return nil, err
	}

	return &x402.PaymentPayload{
		X402Version: x402.Version,
		Scheme:      reqs.Scheme,
		Network:     reqs.Network,
		Payload: &x402.SignedPayload{
			Signature:     sig,
			Authorization: auth,
		},
	}, nil
}

// fund broadcasts a batch payment to payTo, retrying transient failures a
// bounded number of times.
func (p *Payer) fund(ctx context.Context, payTo string) (string, error) {
	outputs := []chain.Output{{Address: payTo, AmountSat: p.batchSat}}

	var lastErr error
	for attempt := 1; attempt <= p.fundAttempts; attempt++ {
		txid, err := p.wallet.Send(ctx, outputs)
		if err == nil {
			return txid, nil
		}
		lastErr = err
		p.log.Warn("funding attempt failed", "attempt", attempt, "err", err)

		if attempt == p.fundAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.fundDelay):
		}
	}
	return "", fmt.Errorf("%w: %w", ErrFundingFailed, lastErr)
}
