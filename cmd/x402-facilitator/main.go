// x402-facilitator runs the payment verification and settlement service for
// the x402 BCH scheme.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/x402-bch-go/chain"
	"github.com/bitfsorg/x402-bch-go/config"
	"github.com/bitfsorg/x402-bch-go/facilitator"
	"github.com/bitfsorg/x402-bch-go/ledger"
	"github.com/bitfsorg/x402-bch-go/rest"
	"github.com/bitfsorg/x402-bch-go/signer"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "x402-facilitator",
	Short: "x402 payment facilitator for Bitcoin Cash",
	Long: `x402-facilitator verifies x402 payment authorizations against a UTXO
debit ledger and settles verified payments on the BCH network. Configuration
comes from environment variables; see the config package for the full list.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the facilitator REST server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the facilitator version",
	Run: func(*cobra.Command, []string) {
		fmt.Println(version)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg := config.FromEnv()
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	store, err := ledger.OpenBoltStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer store.Close()

	node := chain.NewClient(chain.RPCConfig{
		URL:      cfg.RPCURL,
		User:     cfg.RPCUser,
		Password: cfg.RPCPassword,
	})

	// The facilitator's own signer derives the funding wallet address for
	// the startup log; settlement itself goes through the node wallet.
	fundingSigner, err := signer.NewSigner(cfg.PrivateKeyWIF)
	if err != nil {
		return fmt.Errorf("load funding key: %w", err)
	}

	engine := facilitator.NewEngine(facilitator.Options{
		Store:        store,
		Oracle:       node,
		Wallet:       node,
		Verifier:     signer.BSMVerifier{},
		MaxChargeSat: cfg.MaxChargeSat,
		Logger:       log,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           rest.NewServer(engine, version, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("facilitator listening",
			"addr", cfg.ListenAddr,
			"network", cfg.Network,
			"fundingAddress", fundingSigner.Address(),
			"minConfirmations", cfg.MinConfirmations,
			"version", version)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
