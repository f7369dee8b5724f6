// Command auctiond runs the sealed-bid batch auction service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Henry-E/auction-house/config"
	"github.com/Henry-E/auction-house/infra/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "auctiond",
	Short: "Sealed-bid batch auction service",
	Long: `auctiond runs sealed-bid batch auctions: it takes plain and encrypted
limit orders, discovers a single clearing price once ordering and decryption
are over, matches and settles every order at that price.

Every instruction is journaled before it commits, so the state store can be
rebuilt from the journal at any time.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./config.yaml if present)")
	rootCmd.AddCommand(serveCmd, replayCmd, snapshotCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}
