package main

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/historystore/pkg/config"
	"github.com/spf13/cobra"
)

var errUsage = errors.New("usage error")

func usagef(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errUsage)
}

func isUsageError(err error) bool {
	return errors.Is(err, errUsage)
}

var (
	flagConfigPath string
	flagStoreDir   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "historystore",
		Short:         "Query and mutate a Buneman-style nested-merge temporal archive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a JSON config file")
	root.PersistentFlags().StringVar(&flagStoreDir, "store", "", "Badger store directory (overrides config; empty uses an in-memory store)")

	root.AddCommand(newCreateCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newCheckoutCmd())
	root.AddCommand(newRollbackCmd())
	root.AddCommand(newLogCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flagConfigPath)
	if err != nil {
		return nil, err
	}
	if flagStoreDir != "" {
		cfg.StoreDir = flagStoreDir
	}
	return cfg, nil
}
