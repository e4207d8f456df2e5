// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/onlinesoftmax/internal/nn"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// Tiling

// Plan is the tiling of an N×M score matrix into Br×Bc blocks.
type Plan = tile.Plan

// Block is one tile of a Plan.
type Block = tile.Block

// Span is a half-open range of rows or columns.
type Span = tile.Span

// NewPlan tiles an n×m matrix with br×bc blocks, clamping the block size to
// the matrix. All arguments must be positive.
//
// Example:
//
//	plan, err := nn.NewPlan(10, 10, 4, 4) // 3×3 tiles, the last ones 2 wide
func NewPlan(n, m, br, bc int) (Plan, error) {
	return tile.NewPlan(n, m, br, bc)
}

// Kernels

// Config configures the blocked kernels.
type Config = nn.Config

// DefaultConfig returns 64×64 tiles and one worker per CPU.
func DefaultConfig() Config {
	return nn.DefaultConfig()
}

// FlashConfig configures FlashAttention.
type FlashConfig = nn.FlashConfig

// Result is the output of a blocked (or oracle) run.
type Result[T tensor.Float] = nn.Result[T]

// Option customises a blocked run.
type Option[T tensor.Float] = nn.Option[T]

// WithTrace installs a hook receiving every exp(S_ij - m) block as computed.
func WithTrace[T tensor.Float](fn func(Block, *tensor.Dense[T])) Option[T] {
	return nn.WithTrace(fn)
}

// OnlineSoftmax computes the row softmax of s tile by tile.
//
// Example:
//
//	res, err := nn.OnlineSoftmax(scores, nn.Config{BlockRows: 8, BlockCols: 4})
func OnlineSoftmax[T tensor.Float](s *tensor.Dense[T], cfg Config, opts ...Option[T]) (*Result[T], error) {
	return nn.OnlineSoftmax(s, cfg, opts...)
}

// OnlineAttention computes softmax(s) @ v tile by tile.
func OnlineAttention[T tensor.Float](s, v *tensor.Dense[T], cfg Config, opts ...Option[T]) (*Result[T], error) {
	return nn.OnlineAttention(s, v, cfg, opts...)
}

// FlashAttention computes softmax(scale · Q · Kᵀ) @ V without materialising
// the score matrix.
func FlashAttention[T tensor.Float](q, k, v *tensor.Dense[T], cfg FlashConfig, opts ...Option[T]) (*Result[T], error) {
	return nn.FlashAttention(q, k, v, cfg, opts...)
}

// Scores computes scale · Q · Kᵀ, masking j > i with -Inf when causal.
func Scores[T tensor.Float](q, k *tensor.Dense[T], scale float64, causal bool) (*tensor.Dense[T], error) {
	return nn.Scores(q, k, scale, causal)
}

// Accumulator

// Variant selects what an Accumulator produces.
type Variant = nn.Variant

// Accumulator variants.
const (
	Probabilities Variant = nn.Probabilities
	Weighted      Variant = nn.Weighted
)

// Accumulator is the running state of one row tile.
type Accumulator[T tensor.Float] = nn.Accumulator[T]

// NewAccumulator creates the state for a height-row tile whose softmax rows
// are width wide, fed in steps column tiles.
func NewAccumulator[T tensor.Float](height, width, steps int) *Accumulator[T] {
	return nn.NewAccumulator[T](height, width, steps)
}

// NewWeightedAccumulator creates the state for a height-row tile producing
// softmax(S) @ V with V width columns wide.
func NewWeightedAccumulator[T tensor.Float](height, width, steps int) *Accumulator[T] {
	return nn.NewWeightedAccumulator[T](height, width, steps)
}

// References

// OracleSoftmax computes the row softmax of s in one pass per row.
func OracleSoftmax[T tensor.Float](s *tensor.Dense[T]) *Result[T] {
	return nn.OracleSoftmax(s)
}

// OracleAttention computes softmax(s) @ v with a materialised probability matrix.
func OracleAttention[T tensor.Float](s, v *tensor.Dense[T]) (*Result[T], error) {
	return nn.OracleAttention(s, v)
}

// OracleTrace computes the exp(S - m) blocks a traced run reports under plan,
// with m the row maximum over the column-tile prefix.
func OracleTrace[T tensor.Float](s *tensor.Dense[T], plan Plan) (*tensor.Dense[T], error) {
	return nn.OracleTrace(s, plan)
}

// StandardAttention computes softmax(scale · Q · Kᵀ) @ V the direct way.
func StandardAttention[T tensor.Float](q, k, v *tensor.Dense[T], scale float64, causal bool) (*Result[T], error) {
	return nn.StandardAttention(q, k, v, scale, causal)
}

// Errors

// StateError reports an Accumulator misuse inside a blocked run.
type StateError = nn.StateError

// Errors returned by the kernels.
var (
	ErrInvalidDimension = tile.ErrInvalidDimension
	ErrNoUpdates        = nn.ErrNoUpdates
	ErrIncomplete       = nn.ErrIncomplete
	ErrFinalized        = nn.ErrFinalized
	ErrOutOfOrder       = nn.ErrOutOfOrder
	ErrShapeMismatch    = nn.ErrShapeMismatch
	ErrVariant          = nn.ErrVariant
)
