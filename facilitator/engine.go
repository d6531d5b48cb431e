// Package facilitator implements payment verification and settlement for the
// x402 BCH scheme.
//
// The Engine never returns errors to its callers: every operation produces a
// verdict carrying a stable reason code, so transport layers can forward
// results without translating faults.
package facilitator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bitfsorg/x402-bch-go/chain"
	"github.com/bitfsorg/x402-bch-go/ledger"
	"github.com/bitfsorg/x402-bch-go/signer"
	"github.com/bitfsorg/x402-bch-go/x402"
)

// DefaultMaxChargeSat is the charge applied when payment requirements carry
// no minAmountRequired.
const DefaultMaxChargeSat = 10000

// Options configures an Engine. Store, Oracle, Wallet and Verifier are
// required; the rest have defaults.
type Options struct {
	Store    ledger.Store
	Oracle   chain.Oracle
	Wallet   chain.Wallet
	Verifier signer.Verifier

	// MaxChargeSat is used as the charge when requirements omit
	// minAmountRequired. Defaults to DefaultMaxChargeSat.
	MaxChargeSat int64

	Logger *slog.Logger
}

// Engine verifies payment authorizations against the UTXO debit ledger and
// settles verified payments on-chain.
type Engine struct {
	ledger       *ledger.Ledger
	store        ledger.Store
	wallet       chain.Wallet
	verifier     signer.Verifier
	maxChargeSat int64
	settleLocks  *ledger.KeyedMutex
	log          *slog.Logger
}

// NewEngine creates a facilitator engine.
func NewEngine(opts Options) *Engine {
	maxCharge := opts.MaxChargeSat
	if maxCharge <= 0 {
		maxCharge = DefaultMaxChargeSat
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		ledger:       ledger.NewLedger(opts.Store, opts.Oracle),
		store:        opts.Store,
		wallet:       opts.Wallet,
		verifier:     opts.Verifier,
		maxChargeSat: maxCharge,
		settleLocks:  ledger.NewKeyedMutex(),
		log:          log,
	}
}

// SupportedKinds returns the payment kinds this facilitator supports.
func (e *Engine) SupportedKinds() *x402.SupportedKinds {
	return &x402.SupportedKinds{
		Kinds: []x402.SupportedKind{
			{X402Version: x402.Version, Scheme: x402.SchemeUTXO, Network: x402.NetworkBCH},
		},
	}
}

// VerifyPayment checks a payment authorization against the requirements and
// debits the referenced UTXO. Checks run in order and short-circuit on the
// first failure; each failure maps to a distinct reason code.
func (e *Engine) VerifyPayment(ctx context.Context, payload *x402.PaymentPayload, reqs *x402.PaymentRequirements) *x402.VerifyResult {
	if payload == nil || reqs == nil {
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonInvalidPayload, Payer: payload.Payer()}
	}

	if reqs.Network != x402.NetworkBCH || payload.Network != x402.NetworkBCH {
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonInvalidNetwork}
	}

	if reqs.Scheme != x402.SchemeUTXO || payload.Scheme != x402.SchemeUTXO {
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonInvalidScheme}
	}

	if payload.Payload == nil || payload.Payload.Signature == "" {
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonInvalidPayload}
	}
	if payload.Payload.Authorization == nil {
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonMissingAuthorization}
	}

	auth := payload.Payload.Authorization
	payer := auth.From

	message, err := x402.AuthorizationMessage(auth)
	if err != nil {
		e.log.Error("serialize authorization", "err", err)
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonUnexpectedVerifyError, Payer: payer}
	}
	if err := e.verifier.Verify(payer, payload.Payload.Signature, message); err != nil {
		e.log.Info("signature verification failed", "payer", payer, "err", err)
		return &x402.VerifyResult{IsValid: false, InvalidReason: x402.ReasonInvalidSignature, Payer: payer}
	}

	charge := reqs.MinAmountRequired
	if charge <= 0 {
		charge = e.maxChargeSat
	}

	record, err := e.ledger.Debit(ctx, auth.TxID, auth.Vout, payer, charge)
	if err != nil {
		reason := x402.ReasonUnexpectedUtxoValidation
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			reason = x402.ReasonInsufficientUtxoBalance
		}
		e.log.Info("debit rejected", "utxo", auth.UtxoID(), "charge", charge, "reason", reason, "err", err)
		return &x402.VerifyResult{IsValid: false, InvalidReason: reason, Payer: payer}
	}

	e.log.Info("payment verified",
		"payer", payer,
		"utxo", record.UtxoID,
		"charge", charge,
		"remaining", record.RemainingBalanceSat)

	return &x402.VerifyResult{IsValid: true, Payer: payer, UtxoID: record.UtxoID}
}
