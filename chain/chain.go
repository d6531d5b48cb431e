// Package chain provides read access to the Bitcoin Cash chain and
// transaction broadcast for the facilitator.
//
// The facilitator core consumes the Oracle and Wallet interfaces; the
// concrete Client speaks JSON-RPC to a BCH full node.
package chain

import "context"

// UtxoInfo is the authoritative description of an unspent output as reported
// by the node. The client-claimed amount in a payment authorization is
// advisory only; this is what the debit ledger trusts.
type UtxoInfo struct {
	TxID            string `json:"txid"`
	Vout            uint32 `json:"vout"`
	AmountSat       int64  `json:"amountSat"`
	ReceiverAddress string `json:"receiverAddress"`
	Confirmations   int64  `json:"confirmations"`
}

// Output is a single payment destination for a broadcast.
type Output struct {
	Address   string `json:"address"`
	AmountSat int64  `json:"amountSat"`
}

// Oracle answers read-only UTXO queries.
type Oracle interface {
	// QueryUTXO returns the amount and destination address of an unspent
	// output. Returns ErrUtxoNotFound if the output does not exist or has
	// already been spent.
	QueryUTXO(ctx context.Context, txid string, vout uint32) (*UtxoInfo, error)
}

// Wallet is the facilitator operator's funding wallet.
type Wallet interface {
	// Balance returns the spendable balance in satoshis.
	Balance(ctx context.Context) (int64, error)

	// Send broadcasts a transaction paying the given outputs and returns
	// the transaction id.
	Send(ctx context.Context, outputs []Output) (string, error)
}
