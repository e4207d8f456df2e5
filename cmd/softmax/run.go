package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/born-ml/onlinesoftmax/internal/golden"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/spf13/cobra"
)

type runFlags struct {
	caseFlags
	workers int
	reps    int
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the blocked kernel on the case inputs and write param{N}.bin outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			if flags.reps < 1 {
				return fmt.Errorf("--reps must be positive, got %d", flags.reps)
			}
			opts := cfg.Options(flags.workers)

			// float16 files are computed in float32, like the device kernels they stand in for.
			if cfg.DataType == tensor.Float64 {
				return runCase[float64](cmd.OutOrStdout(), flags.dir, cfg, opts, flags.reps)
			}
			return runCase[float32](cmd.OutOrStdout(), flags.dir, cfg, opts, flags.reps)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "row tiles processed concurrently; 0 = one per CPU")
	cmd.Flags().IntVar(&flags.reps, "reps", 1, "repeat the kernel and report timings")
	return cmd
}

func runCase[T tensor.Float](w io.Writer, dir string, cfg golden.Config, opts golden.RunOptions, reps int) error {
	in, err := golden.Load[T](dir, cfg)
	if err != nil {
		return err
	}

	var out *golden.Output[T]
	times := make([]time.Duration, 0, reps)
	for range reps {
		start := time.Now()
		if out, err = golden.Run(in, cfg, opts); err != nil {
			return err
		}
		times = append(times, time.Since(start))
	}

	debugf("plan %v", out.Plan)
	if out.DegenerateRows > 0 {
		debugf("%d degenerate rows emitted as zeros", out.DegenerateRows)
	}
	if err := out.Write(dir, cfg.DataType); err != nil {
		return err
	}

	if reps > 1 {
		fmt.Fprintln(w, summarize(times))
	}
	fmt.Fprintf(w, "wrote outputs for %dx%d to %s\n", cfg.Rows, cfg.OutputCols(), dir)
	return nil
}

// summarize reports min, average and median of the repetition times.
func summarize(times []time.Duration) string {
	sorted := slices.Clone(times)
	slices.Sort(sorted)

	var total time.Duration
	for _, t := range sorted {
		total += t
	}
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return fmt.Sprintf("reps=%d min=%v avg=%v median=%v",
		len(sorted), sorted[0], total/time.Duration(len(sorted)), median)
}
