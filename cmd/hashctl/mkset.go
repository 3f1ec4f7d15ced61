package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamirms/nfthash/set"
)

func newMksetCmd(a *app) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "mkset",
		Short: "Compile a TOML set definition into a set file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := loadSetDef(in)
			if err != nil {
				return err
			}
			if err := set.WriteFile(out, snap); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			f, err := set.Open(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.Verify(); err != nil {
				return fmt.Errorf("verify %s: %w", out, err)
			}

			a.log.Info("set file written",
				zap.String("set", f.Name()),
				zap.String("path", out),
				zap.Int("entries", f.Len()))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d-byte values\n", f.Name(), f.Len(), f.ValueLen())
			return err
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "set definition (TOML)")
	cmd.Flags().StringVar(&out, "out", "", "output set file")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
