package chain

import "context"

// MockOracle is a test double for Oracle.
// The function field must be set before the method is called.
type MockOracle struct {
	QueryUTXOFn func(ctx context.Context, txid string, vout uint32) (*UtxoInfo, error)
}

func (m *MockOracle) QueryUTXO(ctx context.Context, txid string, vout uint32) (*UtxoInfo, error) {
	return m.QueryUTXOFn(ctx, txid, vout)
}

// MockWallet is a test double for Wallet.
// All function fields must be set before the corresponding method is called.
type MockWallet struct {
	BalanceFn func(ctx context.Context) (int64, error)
	SendFn    func(ctx context.Context, outputs []Output) (string, error)
}

func (m *MockWallet) Balance(ctx context.Context) (int64, error) {
	return m.BalanceFn(ctx)
}

func (m *MockWallet) Send(ctx context.Context, outputs []Output) (string, error) {
	return m.SendFn(ctx, outputs)
}
