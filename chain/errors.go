package chain

import "errors"

var (
	// ErrUtxoNotFound indicates the referenced output does not exist or has
	// been spent.
	ErrUtxoNotFound = errors.New("chain: utxo not found")

	// ErrConnectionFailed indicates the node could not be reached.
	ErrConnectionFailed = errors.New("chain: connection to node failed")

	// ErrInvalidResponse indicates the node returned a response that could
	// not be decoded.
	ErrInvalidResponse = errors.New("chain: invalid node response")

	// ErrEmptyOutputs indicates Send was called with no outputs.
	ErrEmptyOutputs = errors.New("chain: no outputs to send")
)
