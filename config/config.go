// Package config holds the facilitator service configuration. Values are
// resolved from environment variables over defaults and checked by
// ValidateConfig before the service starts.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config is the facilitator service configuration.
type Config struct {
	// ListenAddr is the host:port the REST server binds to.
	ListenAddr string

	// Network names the chain this facilitator settles on. Only "bch" is
	// supported.
	Network string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// PrivateKeyWIF is the facilitator's funding wallet key in WIF format.
	PrivateKeyWIF string

	// RPCURL, RPCUser and RPCPassword locate the BCH node's JSON-RPC
	// endpoint.
	RPCURL      string
	RPCUser     string
	RPCPassword string

	// DBPath is the bbolt database file holding the debit ledger.
	DBPath string

	// MinConfirmations is the confirmation depth advertised for funding
	// UTXOs. Advisory; it does not change verification verdicts.
	MinConfirmations int

	// MaxChargeSat caps the amount debited when payment requirements omit
	// minAmountRequired.
	MaxChargeSat int64
}

// DefaultConfig returns the configuration used when no environment
// variables are set.
func DefaultConfig() Config {
	return Config{
		ListenAddr:       ":4040",
		Network:          "bch",
		LogLevel:         "info",
		DBPath:           "data/ledger.db",
		MinConfirmations: 1,
		MaxChargeSat:     10000,
	}
}

// FromEnv resolves the configuration from environment variables, falling
// back to defaults for unset values.
//
//	PORT              listen port (addr becomes ":PORT")
//	NETWORK           chain network name
//	LOG_LEVEL         debug | info | warn | error
//	BCH_PRIVATE_KEY   funding wallet WIF
//	BCH_RPC_URL       node JSON-RPC endpoint
//	BCH_RPC_USER      node RPC username
//	BCH_RPC_PASS      node RPC password
//	DB_PATH           ledger database file
//	MIN_CONFIRMATIONS advertised confirmation depth
//	MAX_CHARGE_SAT    default debit when requirements omit an amount
func FromEnv() Config {
	cfg := DefaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}
	if v := os.Getenv("NETWORK"); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BCH_PRIVATE_KEY"); v != "" {
		cfg.PrivateKeyWIF = v
	}
	if v := os.Getenv("BCH_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("BCH_RPC_USER"); v != "" {
		cfg.RPCUser = v
	}
	if v := os.Getenv("BCH_RPC_PASS"); v != "" {
		cfg.RPCPassword = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MIN_CONFIRMATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinConfirmations = n
		}
	}
	if v := os.Getenv("MAX_CHARGE_SAT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxChargeSat = n
		}
	}

	return cfg
}

// ParseLogLevel maps a config log level string to a slog level. Unknown
// strings map to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
