package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/walletbridge/internal/wallet"
)

func walletsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Manage saved wallets",
	}
	cmd.AddCommand(walletsListCmd(), walletsCreateCmd(), walletsImportCmd(), walletsDeleteCmd())
	return cmd
}

func openStore() (*wallet.Store, error) {
	cfg, _, err := load()
	if err != nil {
		return nil, err
	}
	return wallet.NewStore(cfg.Dir), nil
}

func walletsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			wallets, err := store.Load()
			if err != nil {
				return err
			}
			if len(wallets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no wallets saved")
				return nil
			}
			for _, w := range wallets {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", w.Name, w.Address)
			}
			return nil
		},
	}
}

func walletsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a wallet with a fresh random key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			w, err := store.Create(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", w.Name, w.Address)
			return nil
		},
	}
}

func walletsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <name> <private-key>",
		Short: "Import a wallet from a private key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			w, err := store.Import(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s %s\n", w.Name, w.Address)
			return nil
		},
	}
}

func walletsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Delete the wallet with the given address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}
