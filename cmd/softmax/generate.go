package main

import (
	"fmt"
	"os"

	"github.com/born-ml/onlinesoftmax/internal/golden"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		flags caseFlags
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write random inputs and their golden outputs to the case directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			cfg.Seed = seed

			c, err := golden.Generate(cfg)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(flags.dir, 0o750); err != nil {
				return fmt.Errorf("failed to create case directory: %w", err)
			}
			written, err := c.Write(flags.dir)
			if err != nil {
				return err
			}

			debugf("generated %dx%d scores (qk-dim %d, value-dim %d, causal %v, seed %d)",
				cfg.Rows, cfg.Cols, cfg.QKDim, cfg.ValueDim, cfg.Causal, cfg.Seed)
			if c.Expected.DegenerateRows > 0 {
				debugf("golden output has %d degenerate rows", c.Expected.DegenerateRows)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d inputs and %d golden files to %s\n", len(c.Inputs), written, flags.dir)
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}
