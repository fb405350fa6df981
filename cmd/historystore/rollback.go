package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <version>",
		Short: "Discard all history recorded after version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("rollback takes exactly one version argument")
			}
			v, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return usagef("invalid version %q: %v", args[0], err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openExisting(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Rollback(v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back to version %d\n", v)
			return nil
		},
	}
	return cmd
}
