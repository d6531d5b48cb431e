package facilitator

import (
	"context"
	"errors"
	"time"

	"github.com/bitfsorg/x402-bch-go/chain"
	"github.com/bitfsorg/x402-bch-go/ledger"
	"github.com/bitfsorg/x402-bch-go/x402"
)

// SettlePayment re-verifies a payment and pays the resource owner on-chain
// from the facilitator's funding wallet.
//
// Settlement never trusts a caller's earlier verification: balances may have
// changed between verify and settle, so the full verification (including the
// ledger debit) runs again here.
//
// Settlement is idempotent per authorization. The authorization's signature
// keys a settlement record written before broadcasting; a repeated settle
// call for an already settled authorization returns the recorded transaction
// instead of paying twice, and concurrent settles for the same authorization
// are serialized on the same key.
func (e *Engine) SettlePayment(ctx context.Context, payload *x402.PaymentPayload, reqs *x402.PaymentRequirements) *x402.SettleResult {
	fail := func(reason, payer string) *x402.SettleResult {
		return &x402.SettleResult{
			Success:     false,
			Transaction: "",
			Network:     x402.NetworkBCH,
			Payer:       payer,
			ErrorReason: reason,
		}
	}

	if payload == nil || reqs == nil || payload.Payload == nil || payload.Payload.Authorization == nil {
		return fail(x402.ReasonInvalidPayload, payload.Payer())
	}

	auth := payload.Payload.Authorization
	authID := payload.Payload.Signature

	unlock := e.settleLocks.Lock(authID)
	defer unlock()

	// An authorization settles at most once.
	existing, err := e.store.GetSettlement(ctx, authID)
	switch {
	case err == nil && existing.Status == ledger.SettlementSettled:
		e.log.Info("settlement replay", "utxo", auth.UtxoID(), "transaction", existing.Transaction)
		return &x402.SettleResult{
			Success:     true,
			Transaction: existing.Transaction,
			Network:     x402.NetworkBCH,
			Payer:       existing.PayerAddress,
		}
	case err == nil:
		// A pending record means an earlier attempt stopped between
		// broadcast and acknowledgment; whether the transaction went out is
		// unknown, so refuse to pay again.
		e.log.Warn("settlement in unknown state", "utxo", auth.UtxoID())
		return fail(x402.ReasonInvalidTransactionState, auth.From)
	case !errors.Is(err, ledger.ErrSettlementNotFound):
		e.log.Error("read settlement", "err", err)
		return fail(x402.ReasonUnexpectedSettleError, auth.From)
	}

	verification := e.VerifyPayment(ctx, payload, reqs)
	if !verification.IsValid {
		return fail(verification.InvalidReason, verification.Payer)
	}
	payer := verification.Payer

	// The facilitator funds the payout from its own wallet; the debit ledger
	// only established that the obligation exists and its size.
	balance, err := e.wallet.Balance(ctx)
	if err != nil {
		e.log.Error("query wallet balance", "err", err)
		return fail(x402.ReasonUnexpectedSettleError, payer)
	}
	if balance < auth.Value {
		e.log.Warn("wallet cannot cover settlement", "balance", balance, "value", auth.Value)
		return fail(x402.ReasonInsufficientFunds, payer)
	}

	settlement := &ledger.Settlement{
		AuthorizationID: authID,
		UtxoID:          auth.UtxoID(),
		PayerAddress:    payer,
		PayTo:           reqs.PayTo,
		ValueSat:        auth.Value,
		Status:          ledger.SettlementPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.store.PutSettlement(ctx, settlement); err != nil {
		e.log.Error("record pending settlement", "err", err)
		return fail(x402.ReasonUnexpectedSettleError, payer)
	}

	txid, err := e.wallet.Send(ctx, []chain.Output{{Address: reqs.PayTo, AmountSat: auth.Value}})
	if err != nil {
		e.log.Error("broadcast settlement", "err", err)
		return fail(x402.ReasonUnexpectedSettleError, payer)
	}
	if txid == "" {
		return fail(x402.ReasonInvalidTransactionState, payer)
	}

	settlement.Status = ledger.SettlementSettled
	settlement.Transaction = txid
	settlement.SettledAt = time.Now().UTC()
	if err := e.store.PutSettlement(ctx, settlement); err != nil {
		// The payment went out; report success but leave the record pending
		// so a replay refuses to pay again.
		e.log.Error("record settled settlement", "transaction", txid, "err", err)
	}

	e.log.Info("payment settled",
		"payer", payer,
		"payTo", reqs.PayTo,
		"value", auth.Value,
		"transaction", txid)

	return &x402.SettleResult{
		Success:     true,
		Transaction: txid,
		Network:     x402.NetworkBCH,
		Payer:       payer,
	}
}
