// Package cli defines the walletbridge command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/openclaw/walletbridge/internal/config"
	"github.com/openclaw/walletbridge/internal/logging"
)

// NewRootCmd builds the walletbridge command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walletbridge",
		Short: "Drive a dApp in a real browser behind a synthetic wallet",
	}

	cmd.AddCommand(runCmd())
	cmd.AddCommand(walletsCmd())
	cmd.AddCommand(setupCmd())

	return cmd
}

// load resolves configuration and a logger for a command invocation.
func load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
