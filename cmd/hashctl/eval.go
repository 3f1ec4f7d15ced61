package main

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamirms/nfthash"
	"github.com/tamirms/nfthash/flow"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		rulePath string
		setDir   string
		setDefs  []string
		data     string
		flowSpec string
		flowSeed uint64
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a rule against one input",
		Long: `Evaluate a rule against one input and print the destination register.

Content rules read --data (hex) into their source register. Symmetric rules
hash the --flow tuple "src:port,dst:port,proto". Map rules print the value
found in the set, or "miss".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			attrs, err := loadRule(rulePath)
			if err != nil {
				return err
			}
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

			e, err := nfthash.New(attrs, nfthash.WithSetResolver(reg), nfthash.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer e.Destroy()

			var regs nfthash.RegisterSet
			var pkt nfthash.Packet
			switch e.Type() {
			case nfthash.HashJenkins:
				if data == "" {
					return errors.New("content rules need --data")
				}
				src, err := hex.DecodeString(data)
				if err != nil {
					return fmt.Errorf("--data: %w", err)
				}
				slot := nfthash.ParseRegister(*attrs.SReg)
				if err := nfthash.ValidateLoad(slot, len(src)); err != nil {
					return fmt.Errorf("--data: %w", err)
				}
				regs.Store(slot, src)
			case nfthash.HashSymmetric:
				if flowSpec == "" {
					return errors.New("symmetric rules need --flow")
				}
				t, err := flow.ParseTuple(flowSpec)
				if err != nil {
					return fmt.Errorf("--flow: %w", err)
				}
				pkt = flow.NewHasher(flowSeed).Packet(t)
			}

			out := cmd.OutOrStdout()
			key := e.Key(&regs, pkt)
			if !e.IsMap() {
				e.Eval(&regs, pkt)
				_, err := fmt.Fprintf(out, "%d\n", regs.Uint32(e.Dest()))
				return err
			}

			s, ok := reg.Get(*e.Dump().SetName)
			if !ok {
				return fmt.Errorf("set %q vanished", *e.Dump().SetName)
			}
			var k [4]byte
			binary.LittleEndian.PutUint32(k[:], key)
			if _, hit := s.Lookup(k[:]); !hit {
				_, err := fmt.Fprintf(out, "key %d: miss\n", key)
				return err
			}
			e.Eval(&regs, pkt)
			_, err = fmt.Fprintf(out, "key %d: %x\n", key, regs.Load(e.Dest(), s.ValueLen()))
			return err
		},
	}

	cmd.Flags().StringVar(&rulePath, "rule", "", "rule file (TOML)")
	cmd.Flags().StringVar(&setDir, "sets", "", "directory of *.set files (default $HASHCTL_SET_DIR)")
	cmd.Flags().StringSliceVar(&setDefs, "set-def", nil, "TOML set definition loaded in memory (repeatable)")
	cmd.Flags().StringVar(&data, "data", "", "source register contents as hex")
	cmd.Flags().StringVar(&flowSpec, "flow", "", "flow tuple src:port,dst:port,proto")
	cmd.Flags().Uint64Var(&flowSeed, "flow-seed", 0, "seed of the host flow hash")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}
