package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// FlashConfig configures FlashAttention.
type FlashConfig struct {
	Config
	Scale  float64 // Score multiplier; 0 means 1/sqrt(headDim).
	Causal bool    // Mask key positions after the query position.
}

// FlashAttention computes softmax(scale · Q · Kᵀ) @ V without materialising
// the score matrix.
//
// The work is tiled exactly like OnlineAttention, except that each score
// block S_ij = scale · Q_i · K_jᵀ is computed when its tile is reached and
// discarded after the Update. Memory is O(Br·Bc) per worker on top of the
// output instead of O(N·M).
//
// Parameters:
//   - q: queries [n, d].
//   - k: keys [m, d].
//   - v: values [m, dv].
//
// Returns a Result whose Output is [n, dv].
//
// Example:
//
//	cfg := nn.FlashConfig{Config: nn.Config{BlockRows: 16, BlockCols: 16}, Causal: true}
//	res, err := nn.FlashAttention(q, k, v, cfg)
//
// Reference: "FlashAttention-2: Faster Attention with Better Parallelism and
// Work Partitioning", Dao, 2023 (https://arxiv.org/abs/2307.08691).
func FlashAttention[T tensor.Float](q, k, v *tensor.Dense[T], cfg FlashConfig, opts ...Option[T]) (*Result[T], error) {
	if err := checkQK(q, k); err != nil {
		return nil, err
	}
	if v.Rows() != k.Rows() {
		return nil, fmt.Errorf("%w: key %v and value %v lengths differ", ErrShapeMismatch, k.Shape(), v.Shape())
	}

	plan, err := tile.NewPlan(q.Rows(), k.Rows(), cfg.BlockRows, cfg.BlockCols)
	if err != nil {
		return nil, err
	}

	scale := cfg.Scale
	if scale == 0 {
		scale = 1 / math.Sqrt(float64(q.Cols()))
	}

	source := func(b tile.Block) (*tensor.Dense[T], error) {
		scores := tensor.Zeros[T](b.Row.Size, b.Col.Size)
		flashScoreBlock(scores, q, k, b, T(scale), cfg.Causal)
		return scores, nil
	}
	return runPlan(plan, source, v, cfg.Config, opts)
}

// flashScoreBlock computes Q[rows of b] @ K[cols of b]^T into scores.
func flashScoreBlock[T tensor.Float](scores, q, k *tensor.Dense[T], b tile.Block, scale T, causal bool) {
	for r := 0; r < b.Row.Size; r++ {
		queryPos := b.Row.Start + r
		scoreRow(scores.Row(r), q.Row(queryPos), k, b.Col.Start, scale, causal, queryPos)
	}
}
