package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamirms/nfthash"
)

func newDumpCmd(a *app) *cobra.Command {
	var (
		rulePath string
		setDir   string
		setDefs  []string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Build a rule and print the attributes it exports",
		Long: `Build a rule and print the attributes it exports, first as CBOR hex
and then as TOML. Auto-generated seeds are not exported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			attrs, err := loadRule(rulePath)
			if err != nil {
				return err
			}
			var opts []nfthash.Option
			opts = append(opts, nfthash.WithLogger(a.log))
			if attrs.SetName != nil {
				if setDir == "" {
					setDir = a.env.SetDir
				}
				reg, err := loadSets(cmd.Context(), a.log, setDir, setDefs)
				if err != nil {
					return err
				}
				defer func() {
					if err := reg.Close(); err != nil {
						a.log.Warn("failed to close sets", zap.Error(err))
					}
				}()
				opts = append(opts, nfthash.WithSetResolver(reg))
			}

			e, err := nfthash.New(attrs, opts...)
			if err != nil {
				return err
			}
			defer e.Destroy()

			dumped := e.Dump()
			wire, err := nfthash.MarshalAttrs(dumped)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "# cbor %x\n", wire); err != nil {
				return err
			}
			return toml.NewEncoder(out).Encode(ruleFromAttrs(dumped))
		},
	}
	cmd.Flags().StringVar(&rulePath, "rule", "", "rule file (TOML)")
	cmd.Flags().StringVar(&setDir, "sets", "", "directory of *.set files (default $HASHCTL_SET_DIR)")
	cmd.Flags().StringSliceVar(&setDefs, "set-def", nil, "TOML set definition loaded in memory (repeatable)")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}
