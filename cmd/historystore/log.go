package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List every committed version's snapshot descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usagef("log takes no arguments")
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

			for _, d := range a.Snapshots() {
				ts := "-"
				if d.CommittedAt != 0 {
					ts = time.Unix(0, d.CommittedAt).UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\n", d.Version, ts, d.Operation, d.SourceID, d.Description)
			}
			return nil
		},
	}
	return cmd
}
