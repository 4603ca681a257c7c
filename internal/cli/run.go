package cli

import (
	"github.com/spf13/cobra"

	"github.com/openclaw/walletbridge/internal/workflow"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start an interactive bridge session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			return workflow.New(cfg, log).Run(cmd.Context())
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Verify prerequisites and mark setup complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			return workflow.RunSetup(cfg, log, cmd.OutOrStdout())
		},
	}
}
