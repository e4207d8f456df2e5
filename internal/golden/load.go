package golden

import (
	"github.com/born-ml/onlinesoftmax/internal/nn"
	"github.com/born-ml/onlinesoftmax/internal/serialization"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/verify"
)

// Inputs holds a case's inputs read back from disk. Scores is nil when the
// case is built from queries and keys, Q and K are nil otherwise.
type Inputs[T tensor.Float] struct {
	Scores *tensor.Dense[T]
	Q, K   *tensor.Dense[T]
	V      *tensor.Dense[T]
}

// Load reads the input files of cfg from dir, converting them to T.
func Load[T tensor.Float](dir string, cfg Config) (*Inputs[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	type file struct {
		dst        **tensor.Dense[T]
		rows, cols int
	}
	var in Inputs[T]
	var files []file
	if cfg.FromQK() {
		files = append(files, file{&in.Q, cfg.Rows, cfg.QKDim}, file{&in.K, cfg.Cols, cfg.QKDim})
	} else {
		files = append(files, file{&in.Scores, cfg.Rows, cfg.Cols})
	}
	if cfg.Weighted() {
		files = append(files, file{&in.V, cfg.Cols, cfg.ValueDim})
	}

	for i, f := range files {
		d, err := serialization.LoadDense[T](serialization.Join(dir, serialization.InputName(i)), cfg.DataType, f.rows, f.cols)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return &in, nil
}

// OutputCols returns the width of the main output: M for probabilities, dv
// for a weighted case.
func (c Config) OutputCols() int {
	if c.Weighted() {
		return c.ValueDim
	}
	return c.Cols
}

// Pairs lists the golden/produced file pairs the checker compares for cfg.
// A traced case adds the s1 trace, compared element for element in the
// N×M layout the kernel writes.
func (c Config) Pairs(dir string) []verify.Pair {
	path := func(name string) string { return serialization.Join(dir, name) }
	pairs := []verify.Pair{
		{
			Name:     serialization.GoldenMax,
			Role:     verify.RoleMax,
			Expected: path(serialization.GoldenName(serialization.GoldenMax)),
			Actual:   path(serialization.ParamName(serialization.ParamMax)),
			Rows:     1,
			Cols:     c.Rows,
		},
		{
			Name:     serialization.GoldenSum,
			Role:     verify.RoleSum,
			Expected: path(serialization.GoldenName(serialization.GoldenSum)),
			Actual:   path(serialization.ParamName(serialization.ParamSum)),
			Rows:     1,
			Cols:     c.Rows,
		},
		{
			Name:     serialization.GoldenOutput,
			Role:     verify.RoleOutput,
			Expected: path(serialization.GoldenName(serialization.GoldenOutput)),
			Actual:   path(serialization.ParamName(serialization.ParamOutput)),
			Rows:     c.Rows,
			Cols:     c.OutputCols(),
		},
	}
	if c.Trace {
		pairs = append(pairs, verify.Pair{
			Name:     serialization.GoldenTrace,
			Role:     verify.RoleOutput,
			Expected: path(serialization.GoldenName(serialization.GoldenTrace)),
			Actual:   path(serialization.ParamName(serialization.ParamTrace)),
			Rows:     c.Rows,
			Cols:     c.Cols,
		})
	}
	return pairs
}

// Options returns the kernel options matching the case tiling.
func (c Config) Options(workers int) RunOptions {
	return RunOptions{
		Config: nn.Config{BlockRows: c.BlockRows, BlockCols: c.BlockCols, Workers: workers},
		Trace:  c.Trace,
	}
}
