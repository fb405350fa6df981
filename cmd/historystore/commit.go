package main

import (
	"fmt"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "commit <file>",
		Short: "Merge file into the archive as the next version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("commit takes exactly one file argument")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			doc, err := loadDocument(args[0], cfg)
			if err != nil {
				return err
			}
			defer doc.Close()

			a, err := openExisting(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.Commit(cmd.Context(), doc, archiverow.Descriptor{
				Description: description,
				Operation:   "commit",
				SourceID:    args[0],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed version %d\n", v)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "message", "", "human-readable description for this commit")
	return cmd
}
