package config

import (
	"fmt"
	"net"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if cfg.Network != "bch" {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.PrivateKeyWIF == "" {
		return ErrMissingPrivateKey
	}

	if cfg.RPCURL == "" {
		return ErrMissingRPCURL
	}

	if cfg.DBPath == "" {
		return ErrEmptyDBPath
	}

	if cfg.MinConfirmations < 0 {
		return ErrInvalidMinConfirmations
	}

	if cfg.MaxChargeSat <= 0 {
		return ErrInvalidMaxCharge
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
