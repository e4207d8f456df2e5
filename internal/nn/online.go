package nn

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/born-ml/onlinesoftmax/internal/parallel"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// Config configures the blocked kernels.
type Config struct {
	BlockRows int // Row tile height Br; clamped to the matrix.
	BlockCols int // Column tile width Bc; clamped to the matrix.
	Workers   int // Row tiles processed concurrently. 0 = one per CPU, 1 = sequential.
}

// DefaultConfig returns 64×64 tiles and one worker per CPU.
func DefaultConfig() Config {
	return Config{
		BlockRows: 64,
		BlockCols: 64,
	}
}

func (c Config) parallel() parallel.Config {
	return parallel.DefaultConfig().WithWorkers(c.Workers)
}

// Result is the output of a blocked (or oracle) softmax run.
type Result[T tensor.Float] struct {
	Output         *tensor.Dense[T] // N×M probabilities or N×d weighted output.
	Max            []T              // Final running maximum per row; -Inf for degenerate rows.
	Sum            []T              // Final running sum per row.
	LogSumExp      []T              // Max + log(Sum) per row; -Inf for degenerate rows.
	DegenerateRows int              // Rows emitted as zero rows because their sum was 0.
	Plan           tile.Plan        // Tiling used; zero for the oracle.
}

// Option customises a blocked run.
type Option[T tensor.Float] func(*runOptions[T])

type runOptions[T tensor.Float] struct {
	trace func(tile.Block, *tensor.Dense[T])
}

// WithTrace installs a hook receiving every P_ij = exp(S_ij - m) block as
// computed, before later rescaling. The hook is called concurrently for
// different row tiles and sequentially within one row tile; the block it
// receives is only valid during the call.
func WithTrace[T tensor.Float](fn func(tile.Block, *tensor.Dense[T])) Option[T] {
	return func(o *runOptions[T]) { o.trace = fn }
}

// OnlineSoftmax computes the row softmax of s tile by tile.
//
// Row tiles run concurrently (see Config.Workers); the column tiles of each
// row tile run left to right against that row tile's Accumulator. The result
// matches OracleSoftmax up to floating-point rounding for every tiling.
//
// Example:
//
//	res, err := nn.OnlineSoftmax(scores, nn.Config{BlockRows: 8, BlockCols: 4})
//	probs := res.Output
func OnlineSoftmax[T tensor.Float](s *tensor.Dense[T], cfg Config, opts ...Option[T]) (*Result[T], error) {
	return runBlocked(s, nil, cfg, opts)
}

// OnlineAttention computes softmax(s) @ v tile by tile without ever storing
// a probability block. v must have as many rows as s has columns.
func OnlineAttention[T tensor.Float](s, v *tensor.Dense[T], cfg Config, opts ...Option[T]) (*Result[T], error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value matrix", ErrVariant)
	}
	if v.Rows() != s.Cols() {
		return nil, fmt.Errorf("%w: values %v for scores %v", ErrShapeMismatch, v.Shape(), s.Shape())
	}
	return runBlocked(s, v, cfg, opts)
}

// rowTileSource produces the score block of a tile. The default reads a view
// of a materialised score matrix; flash attention computes it on the fly.
type rowTileSource[T tensor.Float] func(b tile.Block) (*tensor.Dense[T], error)

func runBlocked[T tensor.Float](s, v *tensor.Dense[T], cfg Config, opts []Option[T]) (*Result[T], error) {
	if s == nil {
		return nil, errors.New("nn: nil score matrix")
	}
	plan, err := tile.NewPlan(s.Rows(), s.Cols(), cfg.BlockRows, cfg.BlockCols)
	if err != nil {
		return nil, err
	}
	source := func(b tile.Block) (*tensor.Dense[T], error) { return tile.View(s, b) }
	return runPlan(plan, source, v, cfg, opts)
}

// runPlan drives every row tile of plan. Output rows are partitioned by row
// tile, so the workers write disjoint memory and need no locking.
func runPlan[T tensor.Float](plan tile.Plan, source rowTileSource[T], v *tensor.Dense[T], cfg Config, opts []Option[T]) (*Result[T], error) {
	var o runOptions[T]
	for _, opt := range opts {
		opt(&o)
	}

	variant, width := Probabilities, plan.M
	if v != nil {
		variant, width = Weighted, v.Cols()
	}

	res := &Result[T]{
		Output:    tensor.Zeros[T](plan.N, width),
		Max:       make([]T, plan.N),
		Sum:       make([]T, plan.N),
		LogSumExp: make([]T, plan.N),
		Plan:      plan,
	}

	var degenerate atomic.Int64
	err := parallel.ForErr(plan.Tr, func(i int) error {
		row := plan.RowTile(i)
		dst, err := res.Output.View(row.Start, 0, row.Size, width)
		if err != nil {
			return err
		}
		acc := newAccumulator(variant, dst, plan.Tc)
		if o.trace != nil {
			acc.SetTrace(o.trace)
		}

		for b := range plan.RowBlocks(i) {
			scores, err := source(b)
			if err != nil {
				return err
			}
			var values *tensor.Dense[T]
			if v != nil {
				if values, err = v.View(b.Col.Start, 0, b.Col.Size, width); err != nil {
					return err
				}
			}
			if err := acc.Update(b, scores, values); err != nil {
				return &StateError{RowTile: i, Step: b.J(), Err: err}
			}
		}

		if _, err := acc.Finalize(); err != nil {
			return &StateError{RowTile: i, Step: -1, Err: err}
		}
		acc.copyMax(res.Max[row.Start:row.End()])
		copy(res.Sum[row.Start:row.End()], acc.sumExp)
		acc.copyLogSumExp(res.LogSumExp[row.Start:row.End()])
		degenerate.Add(int64(acc.Degenerate()))
		return nil
	}, cfg.parallel())
	if err != nil {
		return nil, err
	}

	res.DegenerateRows = int(degenerate.Load())
	return res, nil
}
