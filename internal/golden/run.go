package golden

import (
	"fmt"

	"github.com/born-ml/onlinesoftmax/internal/nn"
	"github.com/born-ml/onlinesoftmax/internal/serialization"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// RunOptions selects the kernel tiling and optional outputs of Run.
type RunOptions struct {
	nn.Config
	Trace bool // Collect every exp(S - m) block into an N×M matrix.
}

// Output is the result of one kernel run on a case.
type Output[T tensor.Float] struct {
	*nn.Result[T]
	Trace *tensor.Dense[T] // nil unless RunOptions.Trace.
}

// Run executes the blocked kernel matching cfg on in: FlashAttention for a
// weighted case built from queries and keys, OnlineAttention for weighted
// scores, OnlineSoftmax otherwise.
func Run[T tensor.Float](in *Inputs[T], cfg Config, opts RunOptions) (*Output[T], error) {
	out := &Output[T]{}
	var nnOpts []nn.Option[T]
	if opts.Trace {
		out.Trace = tensor.Zeros[T](cfg.Rows, cfg.Cols)
		nnOpts = append(nnOpts, nn.WithTrace(func(b tile.Block, p *tensor.Dense[T]) {
			// Blocks are disjoint, so concurrent row tiles never share a destination.
			dst, err := tile.View(out.Trace, b)
			if err == nil {
				err = dst.CopyFrom(p)
			}
			if err != nil {
				panic(fmt.Sprintf("golden: trace block %v: %v", b, err))
			}
		}))
	}

	var err error
	switch {
	case cfg.FromQK() && cfg.Weighted():
		fc := nn.FlashConfig{Config: opts.Config, Scale: cfg.Scale, Causal: cfg.Causal}
		out.Result, err = nn.FlashAttention(in.Q, in.K, in.V, fc, nnOpts...)
	default:
		s := in.Scores
		if cfg.FromQK() {
			if s, err = nn.Scores(in.Q, in.K, cfg.Scale, cfg.Causal); err != nil {
				return nil, err
			}
		}
		if cfg.Weighted() {
			out.Result, err = nn.OnlineAttention(s, in.V, opts.Config, nnOpts...)
		} else {
			out.Result, err = nn.OnlineSoftmax(s, opts.Config, nnOpts...)
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write stores the run as param0.bin (max), param1.bin (sum), param2.bin
// (output) and, when collected, param3.bin (trace) under dir.
func (o *Output[T]) Write(dir string, dt tensor.DataType) error {
	path := func(i int) string { return serialization.Join(dir, serialization.ParamName(i)) }
	if err := serialization.Save(path(serialization.ParamMax), dt, o.Max); err != nil {
		return err
	}
	if err := serialization.Save(path(serialization.ParamSum), dt, o.Sum); err != nil {
		return err
	}
	if err := serialization.SaveDense(path(serialization.ParamOutput), dt, o.Output); err != nil {
		return err
	}
	if o.Trace != nil {
		return serialization.SaveDense(path(serialization.ParamTrace), dt, o.Trace)
	}
	return nil
}
