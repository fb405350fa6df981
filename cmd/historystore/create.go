package main

import (
	"fmt"

	"github.com/kasuganosora/historystore/pkg/archive"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create a new archive, committing file as version 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("create takes exactly one file argument")
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

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			if _, ok, err := st.LoadMetadata(); err != nil {
				return err
			} else if ok {
				return usagef("an archive already exists at %q", cfg.StoreDir)
			}

			a, err := archive.New(cmd.Context(), archive.CreateOptions{
				PrimaryKey:      splitKey(key),
				InitialDocument: doc,
				Store:           st,
			})
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "created archive at version %d\n", a.CurrentVersion())
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "comma-separated primary key columns (empty means an un-keyed archive)")
	return cmd
}
