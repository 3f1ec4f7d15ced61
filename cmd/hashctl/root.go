package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags and environment are
// parsed.
type app struct {
	env envVars
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	var dotenv string

	root := &cobra.Command{
		Use:          "hashctl",
		Short:        "Build, evaluate and benchmark hash classification rules",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			env, err := loadEnv(dotenv)
			if err != nil {
				return err
			}
			log, err := newLogger(env)
			if err != nil {
				return err
			}
			a.env, a.log = env, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			// Syncing stderr fails on some terminals; nothing useful to do about it.
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&dotenv, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newEvalCmd(a),
		newMksetCmd(a),
		newDumpCmd(a),
		newBenchCmd(a),
	)
	return root
}
