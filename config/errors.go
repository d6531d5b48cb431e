package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"bch\")")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDBPath indicates the ledger database path is empty.
	ErrEmptyDBPath = errors.New("config: database path must not be empty")

	// ErrMissingPrivateKey indicates no funding wallet key was configured.
	ErrMissingPrivateKey = errors.New("config: BCH private key must be set")

	// ErrMissingRPCURL indicates no node RPC endpoint was configured.
	ErrMissingRPCURL = errors.New("config: BCH node RPC URL must be set")

	// ErrInvalidMaxCharge indicates the default charge cap is not positive.
	ErrInvalidMaxCharge = errors.New("config: max charge must be positive")

	// ErrInvalidMinConfirmations indicates a negative confirmation depth.
	ErrInvalidMinConfirmations = errors.New("config: min confirmations must not be negative")
)
