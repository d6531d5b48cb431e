package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// satPerBCH converts between the node's BCH-denominated amounts and satoshis.
const satPerBCH = 1e8

// RPCConfig holds the connection parameters for a BCH node's JSON-RPC
// interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Client is a JSON-RPC 1.0 client for communicating with BCH nodes. It
// implements both Oracle (gettxout) and Wallet (getbalance, sendmany) against
// the node's wallet.
type Client struct {
	url    string
	user   string
	pass   string
	client *http.Client
	nextID atomic.Int64
}

// Compile-time interface checks.
var (
	_ Oracle = (*Client)(nil)
	_ Wallet = (*Client)(nil)
)

// rpcRequest represents a JSON-RPC 1.0 request payload.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse represents a JSON-RPC 1.0 response payload.
type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// rpcError represents an error returned by the JSON-RPC server.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a new JSON-RPC client with the given configuration.
// The client uses HTTP Basic Auth when User is non-empty, and maintains
// a connection pool for efficient reuse.
func NewClient(cfg RPCConfig) *Client {
	return &Client{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Call invokes a JSON-RPC method on the BCH node. It serializes the request,
// sends it with optional Basic Auth, and deserializes the response into
// result.
//
// If params is nil, an empty params array is sent. If result is nil, the
// response result is discarded. Call returns ErrConnectionFailed if the HTTP
// request fails and ErrInvalidResponse if the response cannot be decoded.
// RPC-level errors are returned as plain errors with the server's message.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	reqBody := rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("chain: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}

	if rpcResp.ID != reqBody.ID {
		return fmt.Errorf("%w: response ID mismatch: expected %d, got %d",
			ErrInvalidResponse, reqBody.ID, rpcResp.ID)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("chain: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal result: %w", ErrInvalidResponse, err)
		}
	}

	return nil
}

// txOutResult is the gettxout response shape.
type txOutResult struct {
	Value         float64 `json:"value"` // BCH
	Confirmations int64   `json:"confirmations"`
	ScriptPubKey  struct {
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}

// QueryUTXO looks up an unspent output via gettxout. The mempool is included
// so freshly broadcast funding transactions are visible immediately.
func (c *Client) QueryUTXO(ctx context.Context, txid string, vout uint32) (*UtxoInfo, error) {
	var result *txOutResult
	err := c.Call(ctx, "gettxout", []any{txid, vout, true}, &result)
	if err != nil {
		return nil, err
	}
	// gettxout returns null for missing or spent outputs.
	if result == nil {
		return nil, fmt.Errorf("%w: %s:%d", ErrUtxoNotFound, txid, vout)
	}

	info := &UtxoInfo{
		TxID:          txid,
		Vout:          vout,
		AmountSat:     int64(math.Round(result.Value * satPerBCH)),
		Confirmations: result.Confirmations,
	}
	if len(result.ScriptPubKey.Addresses) > 0 {
		info.ReceiverAddress = result.ScriptPubKey.Addresses[0]
	}
	return info, nil
}

// Balance returns the node wallet's spendable balance in satoshis.
func (c *Client) Balance(ctx context.Context) (int64, error) {
	var balance float64
	if err := c.Call(ctx, "getbalance", nil, &balance); err != nil {
		return 0, err
	}
	return int64(math.Round(balance * satPerBCH)), nil
}

// Send pays the given outputs from the node wallet via sendmany and returns
// the broadcast transaction id.
func (c *Client) Send(ctx context.Context, outputs []Output) (string, error) {
	if len(outputs) == 0 {
		return "", ErrEmptyOutputs
	}

	amounts := make(map[string]json.Number, len(outputs))
	for _, out := range outputs {
		amounts[out.Address] = json.Number(formatBCH(out.AmountSat))
	}

	var txid string
	if err := c.Call(ctx, "sendmany", []any{"", amounts}, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// formatBCH renders a satoshi amount as a BCH decimal string with 8 places.
func formatBCH(sat int64) string {
	return strconv.FormatFloat(float64(sat)/satPerBCH, 'f', 8, 64)
}
