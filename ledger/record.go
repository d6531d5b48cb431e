// Package ledger tracks how much of each deposited UTXO has been consumed
// across repeated micropayments.
//
// A Record is created the first time a UTXO is debited and only ever updated
// afterwards; RemainingBalanceSat decreases monotonically and the invariant
// RemainingBalanceSat + TotalDebitedSat == TransactionValueSat holds after
// every successful debit. Records are never deleted.
package ledger

import "time"

// Record is the persisted debit state of one UTXO, keyed by "{txid}:{vout}".
type Record struct {
	UtxoID              string    `json:"utxoId"`
	TxID                string    `json:"txid"`
	Vout                uint32    `json:"vout"`
	PayerAddress        string    `json:"payerAddress"`
	ReceiverAddress     string    `json:"receiverAddress"`
	TransactionValueSat int64     `json:"transactionValueSat"` // fixed at first sight, from the oracle
	RemainingBalanceSat int64     `json:"remainingBalanceSat"`
	TotalDebitedSat     int64     `json:"totalDebitedSat"`
	FirstSeen           time.Time `json:"firstSeen"`
	LastUpdated         time.Time `json:"lastUpdated"`
	LastChecked         time.Time `json:"lastChecked"`
}

// Settlement status values.
const (
	SettlementPending = "pending"
	SettlementSettled = "settled"
)

// Settlement records that a specific authorization has been (or is being)
// settled on-chain, keyed by the authorization's signature. It exists to stop
// a second settle call for the same authorization from double-broadcasting.
type Settlement struct {
	AuthorizationID string    `json:"authorizationId"` // signature of the settled authorization
	UtxoID          string    `json:"utxoId"`
	PayerAddress    string    `json:"payerAddress"`
	PayTo           string    `json:"payTo"`
	ValueSat        int64     `json:"valueSat"`
	Status          string    `json:"status"`
	Transaction     string    `json:"transaction"`
	CreatedAt       time.Time `json:"createdAt"`
	SettledAt       time.Time `json:"settledAt"`
}
