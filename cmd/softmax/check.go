package main

import (
	"fmt"

	"github.com/born-ml/onlinesoftmax/internal/verify"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var flags caseFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare param{N}.bin outputs against the golden files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}

			pairs := cfg.Pairs(flags.dir)
			reports := make([]verify.Report, 0, len(pairs))
			for _, p := range pairs {
				r, err := verify.CompareFiles(p, cfg.DataType)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), r)
				reports = append(reports, r)
			}
			return verify.Check(reports...)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
