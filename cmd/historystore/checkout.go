package main

import (
	"encoding/csv"
	"strconv"

	"github.com/kasuganosora/historystore/pkg/value"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <version>",
		Short: "Reconstruct a version and print it as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("checkout takes exactly one version argument")
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

			r, err := a.CheckoutReader(cmd.Context(), v)
			if err != nil {
				return err
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			defer w.Flush()
			if err := w.Write(r.Columns()); err != nil {
				return err
			}
			for {
				row, ok, err := r.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				rec := make([]string, len(row))
				for i, s := range row {
					if s.Kind() == value.KindText {
						rec[i] = s.String()
					} else {
						rec[i] = s.GoString()
					}
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
