// Package main provides the softmax CLI: it generates test cases, runs the
// blocked kernels on them and checks the produced files against golden data.
package main

import (
	"io"
	"log"
	"os"

	"github.com/born-ml/onlinesoftmax/internal/golden"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const version = "v0.1.0"

// caseFlags are the dimensions and file options shared by every command that
// touches a case directory.
type caseFlags struct {
	rows     int
	cols     int
	qkDim    int
	valueDim int
	scale    float64
	causal   bool
	dtype    string
	dir      string
	br       int
	bc       int
	trace    bool
}

func (f *caseFlags) register(fs *pflag.FlagSet) {
	fs.IntVarP(&f.rows, "rows", "n", 256, "score rows N (queries)")
	fs.IntVarP(&f.cols, "cols", "m", 512, "score columns M (keys)")
	fs.IntVar(&f.qkDim, "qk-dim", 0, "head dim d; build scores from Q and K instead of drawing them")
	fs.IntVar(&f.valueDim, "value-dim", 0, "value width dv; 0 computes probabilities only")
	fs.Float64Var(&f.scale, "scale", 0, "score multiplier for Q·Kᵀ; 0 means 1/sqrt(d)")
	fs.BoolVar(&f.causal, "causal", false, "mask key positions after the query position")
	fs.StringVar(&f.dtype, "dtype", "float32", "on-disk element type: float16, float32 or float64")
	fs.StringVar(&f.dir, "dir", ".", "case directory")
	fs.IntVar(&f.br, "br", 64, "row tile height Br (clamped to N)")
	fs.IntVar(&f.bc, "bc", 64, "column tile width Bc (clamped to M)")
	fs.BoolVar(&f.trace, "trace", false, "produce and check every exp(S - m) block (s1_golden.bin, param3.bin)")
}

func (f *caseFlags) config() (golden.Config, error) {
	dt, err := tensor.ParseDataType(f.dtype)
	if err != nil {
		return golden.Config{}, err
	}
	cfg := golden.Config{
		Rows:     f.rows,
		Cols:     f.cols,
		QKDim:    f.qkDim,
		ValueDim: f.valueDim,
		Scale:    f.scale,
		Causal:   f.causal,
		DataType: dt,

		BlockRows: f.br,
		BlockCols: f.bc,
		Trace:     f.trace,
	}
	return cfg, cfg.Validate()
}

var (
	logger  = log.New(os.Stderr, "softmax: ", 0)
	verbose bool
)

// debugf logs only with --verbose.
func debugf(format string, args ...any) {
	if verbose {
		logger.Printf(format, args...)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "softmax",
		Short:         "Blocked online softmax and attention kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log plan geometry, degenerate rows and timings")

	root.AddCommand(
		newGenerateCmd(),
		newRunCmd(),
		newCheckCmd(),
		newInfoCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		logger.Fatal(err)
	}
}
