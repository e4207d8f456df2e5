// Package golden generates reproducible inputs for the blocked kernels and
// the expected outputs the checker compares against.
//
// Inputs are drawn from a seeded generator, rounded to the on-disk element
// type, and only then fed to the oracle, so the golden files describe exactly
// the values a kernel run will read back.
package golden

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/onlinesoftmax/internal/nn"
	"github.com/born-ml/onlinesoftmax/internal/serialization"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// ErrInvalidConfig is returned for a configuration that describes no data.
var ErrInvalidConfig = errors.New("invalid golden configuration")

// Config describes one generated case.
type Config struct {
	Rows     int             // N: score rows (queries).
	Cols     int             // M: score columns (keys).
	QKDim    int             // Head dim d; 0 draws the score matrix directly.
	ValueDim int             // Value width dv; 0 produces probabilities only.
	Scale    float64         // Score multiplier for Q·Kᵀ; 0 means 1/sqrt(d).
	Causal   bool            // Mask key positions after the query position.
	Seed     int64           // Generator seed.
	DataType tensor.DataType // On-disk element type.

	BlockRows int  // Row tile height Br of the kernel run.
	BlockCols int  // Column tile width Bc; fixes where the trace running max is sampled.
	Trace     bool // Produce and check the per-block exp(S - m) trace.
}

// Validate checks that the dimensions describe at least one score.
func (c Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d scores", ErrInvalidConfig, c.Rows, c.Cols)
	}
	if c.QKDim < 0 || c.ValueDim < 0 {
		return fmt.Errorf("%w: negative head dim (qk=%d, value=%d)", ErrInvalidConfig, c.QKDim, c.ValueDim)
	}
	if c.Trace && (c.BlockRows <= 0 || c.BlockCols <= 0) {
		return fmt.Errorf("%w: trace needs a %dx%d tiling", ErrInvalidConfig, c.BlockRows, c.BlockCols)
	}
	return nil
}

// Weighted reports whether the case produces a value-weighted output.
func (c Config) Weighted() bool { return c.ValueDim > 0 }

// FromQK reports whether scores are built from queries and keys.
func (c Config) FromQK() bool { return c.QKDim > 0 }

// Case is a generated input set and its oracle result.
type Case struct {
	Config   Config
	Inputs   []*tensor.Dense[float64] // In file order: S [, V] or Q, K [, V].
	Scores   *tensor.Dense[float64]
	Values   *tensor.Dense[float64] // nil unless Weighted.
	Expected *nn.Result[float64]
	Trace    *tensor.Dense[float64] // nil unless Config.Trace.
}

// Plan returns the tiling of the case's score matrix.
func (c Config) Plan() (tile.Plan, error) {
	return tile.NewPlan(c.Rows, c.Cols, c.BlockRows, c.BlockCols)
}

// Generate draws the inputs of cfg and computes the expected outputs.
func Generate(cfg Config) (*Case, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: reproducible test data

	c := &Case{Config: cfg}
	if cfg.FromQK() {
		q, err := quantize(tensor.Randn[float64](cfg.Rows, cfg.QKDim, rng), cfg.DataType)
		if err != nil {
			return nil, err
		}
		k, err := quantize(tensor.Randn[float64](cfg.Cols, cfg.QKDim, rng), cfg.DataType)
		if err != nil {
			return nil, err
		}
		if c.Scores, err = nn.Scores(q, k, cfg.Scale, cfg.Causal); err != nil {
			return nil, err
		}
		c.Inputs = append(c.Inputs, q, k)
	} else {
		s, err := quantize(tensor.Randn[float64](cfg.Rows, cfg.Cols, rng), cfg.DataType)
		if err != nil {
			return nil, err
		}
		c.Scores = s
		c.Inputs = append(c.Inputs, s)
	}

	if cfg.Trace {
		plan, err := cfg.Plan()
		if err != nil {
			return nil, err
		}
		if c.Trace, err = nn.OracleTrace(c.Scores, plan); err != nil {
			return nil, err
		}
	}

	if !cfg.Weighted() {
		c.Expected = nn.OracleSoftmax(c.Scores)
		return c, nil
	}

	v, err := quantize(tensor.Randn[float64](cfg.Cols, cfg.ValueDim, rng), cfg.DataType)
	if err != nil {
		return nil, err
	}
	c.Values = v
	c.Inputs = append(c.Inputs, v)
	if c.Expected, err = nn.OracleAttention(c.Scores, v); err != nil {
		return nil, err
	}
	return c, nil
}

// Write stores the inputs as input{N}.bin and the expected outputs as
// m0_golden.bin, l0_golden.bin, o0_golden.bin and, for a traced case,
// s1_golden.bin under dir. It returns the number of golden files written.
func (c *Case) Write(dir string) (int, error) {
	dt := c.Config.DataType
	for i, in := range c.Inputs {
		if err := serialization.SaveDense(serialization.Join(dir, serialization.InputName(i)), dt, in); err != nil {
			return 0, err
		}
	}

	type output struct {
		name string
		save func(path string) error
	}
	outputs := []output{
		{serialization.GoldenMax, func(p string) error { return serialization.Save(p, dt, c.Expected.Max) }},
		{serialization.GoldenSum, func(p string) error { return serialization.Save(p, dt, c.Expected.Sum) }},
		{serialization.GoldenOutput, func(p string) error { return serialization.SaveDense(p, dt, c.Expected.Output) }},
	}
	if c.Trace != nil {
		outputs = append(outputs, output{serialization.GoldenTrace, func(p string) error {
			return serialization.SaveDense(p, dt, c.Trace)
		}})
	}
	for _, o := range outputs {
		if err := o.save(serialization.Join(dir, serialization.GoldenName(o.name))); err != nil {
			return 0, err
		}
	}
	return len(outputs), nil
}

// quantize rounds every element of d to the nearest dt value.
func quantize(d *tensor.Dense[float64], dt tensor.DataType) (*tensor.Dense[float64], error) {
	data := d.Data()
	buf, err := serialization.AppendEncoded(nil, dt, data)
	if err != nil {
		return nil, err
	}
	if err := serialization.Decode(data, dt, buf); err != nil {
		return nil, err
	}
	return d, nil
}
