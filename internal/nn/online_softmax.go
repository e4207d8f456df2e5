// Package nn implements blocked ("online") softmax and the attention kernels
// built on it.
package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// Variant selects what an Accumulator folds into its output.
type Variant int

const (
	// Probabilities stores every exp block into its column slot of an
	// N-wide output, giving the row softmax after Finalize.
	Probabilities Variant = iota
	// Weighted folds each exp block against the matching value block,
	// giving the attention output after Finalize.
	Weighted
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case Probabilities:
		return "probabilities"
	case Weighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// Accumulator is the running state of one row tile.
//
// It holds, per row r of the tile, the running maximum m[r], the running
// normalisation sum l[r] and the running output O[r,:]. Column tiles are fed
// to Update strictly left to right; Finalize divides O by l once all of them
// have been consumed.
//
// Algorithm, for each new block S (height × width):
//
//	rowmax  = max over columns of S
//	m_new   = max(m_old, rowmax)
//	P       = exp(S - m_new)
//	c       = exp(m_old - m_new), or 0 if the row had no maximum yet
//	l       = l*c + rowsum(P)
//	O       = O*c then P stored in its column slot  (Probabilities)
//	O       = O*c + P @ V                            (Weighted)
//
// A row whose running maximum is still unset carries no state: it is tracked
// with an explicit flag rather than a -Inf or large negative stand-in, so the
// first-block correction is exactly zero by construction.
//
// An Accumulator is not safe for concurrent use. Different row tiles use
// different accumulators and share nothing.
type Accumulator[T tensor.Float] struct {
	variant Variant
	height  int
	width   int
	steps   int // Column tiles expected before Finalize.
	done    int // Column tiles consumed so far.
	filled  int // Output columns written (Probabilities only).

	maxVal []T    // Running maximum per row.
	seen   []bool // Whether maxVal[r] holds a value.
	sumExp []T    // Running sum of exp(x - max) per row.
	out    *tensor.Dense[T]

	probs      []T // Scratch for one row of P (Weighted only).
	final      bool
	degenerate int
	trace      func(tile.Block, *tensor.Dense[T])
}

// NewAccumulator creates the state of a row tile for the plain softmax.
//
// Parameters:
//   - height: rows in the row tile.
//   - width: total columns of the score matrix (the output width).
//   - steps: column tiles that will be fed before Finalize.
//
// Example:
//
//	acc := nn.NewAccumulator[float64](4, 10, 3)
//	for b := range plan.RowBlocks(i) {
//	    block, _ := tile.View(scores, b)
//	    if err := acc.Update(b, block, nil); err != nil { ... }
//	}
//	probs, err := acc.Finalize()
func NewAccumulator[T tensor.Float](height, width, steps int) *Accumulator[T] {
	return newAccumulator(Probabilities, tensor.Zeros[T](height, width), steps)
}

// NewWeightedAccumulator creates the state of a row tile for the
// attention-weighted variant; width is the value dimension.
func NewWeightedAccumulator[T tensor.Float](height, width, steps int) *Accumulator[T] {
	return newAccumulator(Weighted, tensor.Zeros[T](height, width), steps)
}

// newAccumulator builds an accumulator writing into out, which may be a view
// of a larger output buffer.
func newAccumulator[T tensor.Float](variant Variant, out *tensor.Dense[T], steps int) *Accumulator[T] {
	height := out.Rows()
	a := &Accumulator[T]{
		variant: variant,
		height:  height,
		width:   out.Cols(),
		steps:   steps,
		maxVal:  make([]T, height),
		seen:    make([]bool, height),
		sumExp:  make([]T, height),
		out:     out,
	}
	a.out.Fill(0)
	return a
}

// Variant returns what the accumulator folds into its output.
func (a *Accumulator[T]) Variant() Variant { return a.variant }

// Done returns the number of column tiles consumed.
func (a *Accumulator[T]) Done() int { return a.done }

// Finalized reports whether Finalize has succeeded.
func (a *Accumulator[T]) Finalized() bool { return a.final }

// Update applies one column tile.
//
// scores is the height × w block S_ij. values is the w × width block V_j for
// the Weighted variant and must be nil for Probabilities. b identifies the
// block; its column index must equal the number of tiles consumed so far.
func (a *Accumulator[T]) Update(b tile.Block, scores, values *tensor.Dense[T]) error {
	if a.final {
		return ErrFinalized
	}
	if b.J() != a.done {
		return fmt.Errorf("%w: got column tile %d, want %d", ErrOutOfOrder, b.J(), a.done)
	}
	if a.done >= a.steps {
		return fmt.Errorf("%w: all %d column tiles already consumed", ErrOutOfOrder, a.steps)
	}
	if err := a.checkBlock(scores, values); err != nil {
		return err
	}

	w := scores.Cols()
	var slot *tensor.Dense[T]
	if a.variant == Probabilities {
		var err error
		if slot, err = a.out.View(0, a.filled, a.height, w); err != nil {
			return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
		}
	} else if cap(a.probs) < w {
		a.probs = make([]T, w)
	}

	for r := 0; r < a.height; r++ {
		var p []T
		if slot != nil {
			p = slot.Row(r)
		} else {
			p = a.probs[:w]
		}
		a.updateRow(r, scores.Row(r), p, values)
	}

	if a.trace != nil {
		if slot != nil {
			a.trace(b, slot)
		} else {
			a.traceWeighted(b, scores)
		}
	}

	a.done++
	a.filled += w
	return nil
}

// updateRow runs the recurrence for row r. p receives exp(s - m_new).
func (a *Accumulator[T]) updateRow(r int, s, p []T, values *tensor.Dense[T]) {
	blockMax, ok := rowMax(s)
	oldMax, hadMax := a.maxVal[r], a.seen[r]

	var newMax, correction T
	switch {
	case !hadMax && !ok:
		// Nothing but -Inf so far: no maximum, no mass.
		clear(p)
		return
	case !hadMax:
		newMax, correction = blockMax, 0
	case !ok || blockMax <= oldMax:
		// Ties keep the running maximum.
		newMax, correction = oldMax, 1
	default:
		newMax = blockMax
		correction = T(math.Exp(float64(oldMax - newMax)))
	}

	var blockSum T
	for c, x := range s {
		e := T(math.Exp(float64(x - newMax)))
		p[c] = e
		blockSum += e
	}

	a.sumExp[r] = a.sumExp[r]*correction + blockSum
	a.maxVal[r] = newMax
	a.seen[r] = true

	out := a.out.Row(r)
	switch a.variant {
	case Probabilities:
		if correction != 1 {
			for c := range out[:a.filled] {
				out[c] *= correction
			}
		}
	case Weighted:
		if correction != 1 {
			for d := range out {
				out[d] *= correction
			}
		}
		for c, e := range p {
			if e == 0 {
				continue
			}
			v := values.Row(c)
			for d := range out {
				out[d] += e * v[d]
			}
		}
	}
}

// traceWeighted rebuilds P for the trace hook, since the Weighted variant
// never stores it.
func (a *Accumulator[T]) traceWeighted(b tile.Block, scores *tensor.Dense[T]) {
	p := tensor.Zeros[T](a.height, scores.Cols())
	for r := 0; r < a.height; r++ {
		if !a.seen[r] {
			continue
		}
		dst := p.Row(r)
		for c, x := range scores.Row(r) {
			dst[c] = T(math.Exp(float64(x - a.maxVal[r])))
		}
	}
	a.trace(b, p)
}

func (a *Accumulator[T]) checkBlock(scores, values *tensor.Dense[T]) error {
	if scores.Rows() != a.height {
		return fmt.Errorf("%w: block has %d rows, row tile has %d", ErrShapeMismatch, scores.Rows(), a.height)
	}
	switch a.variant {
	case Probabilities:
		if values != nil {
			return fmt.Errorf("%w: value block given to %s accumulator", ErrVariant, a.variant)
		}
		if a.filled+scores.Cols() > a.width {
			return fmt.Errorf("%w: block of %d columns overflows width %d at column %d",
				ErrShapeMismatch, scores.Cols(), a.width, a.filled)
		}
	case Weighted:
		if values == nil {
			return fmt.Errorf("%w: %s accumulator needs a value block", ErrVariant, a.variant)
		}
		if values.Rows() != scores.Cols() || values.Cols() != a.width {
			return fmt.Errorf("%w: value block %v for score block %v and width %d",
				ErrShapeMismatch, values.Shape(), scores.Shape(), a.width)
		}
	}
	return nil
}

// Finalize divides the output by the running sum, row by row, and returns it.
//
// A row whose running sum is zero (every score was -Inf) is emitted as a
// zero row and counted by Degenerate; no division takes place for it.
// After Finalize the accumulator is read-only.
func (a *Accumulator[T]) Finalize() (*tensor.Dense[T], error) {
	switch {
	case a.final:
		return nil, ErrFinalized
	case a.done == 0:
		return nil, ErrNoUpdates
	case a.done < a.steps:
		return nil, fmt.Errorf("%w: %d of %d", ErrIncomplete, a.done, a.steps)
	case a.variant == Probabilities && a.filled != a.width:
		return nil, fmt.Errorf("%w: %d of %d columns", ErrIncomplete, a.filled, a.width)
	}

	for r := 0; r < a.height; r++ {
		out := a.out.Row(r)
		l := a.sumExp[r]
		if l == 0 {
			clear(out)
			a.degenerate++
			continue
		}
		for c := range out {
			out[c] /= l
		}
	}
	a.final = true
	return a.out, nil
}

// Degenerate returns the number of rows finalized as zero rows.
func (a *Accumulator[T]) Degenerate() int { return a.degenerate }

// Max returns a copy of the running maximum per row; rows without a maximum
// report -Inf.
func (a *Accumulator[T]) Max() []T {
	out := make([]T, a.height)
	a.copyMax(out)
	return out
}

// Sum returns a copy of the running normalisation sum per row.
func (a *Accumulator[T]) Sum() []T {
	return append([]T(nil), a.sumExp...)
}

// LogSumExp returns m + log(l) per row, the statistic a backward pass needs
// to recompute probabilities. Rows without mass report -Inf.
func (a *Accumulator[T]) LogSumExp() []T {
	out := make([]T, a.height)
	a.copyLogSumExp(out)
	return out
}

func (a *Accumulator[T]) copyMax(dst []T) {
	for r := range dst {
		if a.seen[r] {
			dst[r] = a.maxVal[r]
		} else {
			dst[r] = T(math.Inf(-1))
		}
	}
}

func (a *Accumulator[T]) copyLogSumExp(dst []T) {
	for r := range dst {
		if !a.seen[r] || a.sumExp[r] == 0 {
			dst[r] = T(math.Inf(-1))
			continue
		}
		dst[r] = a.maxVal[r] + T(math.Log(float64(a.sumExp[r])))
	}
}

// Reset clears the accumulator for reuse on another row tile of the same
// shape and column count.
func (a *Accumulator[T]) Reset() {
	a.done = 0
	a.filled = 0
	a.final = false
	a.degenerate = 0
	clear(a.maxVal)
	clear(a.seen)
	clear(a.sumExp)
	a.out.Fill(0)
}

// SetTrace installs a hook that receives every P block right after it is
// computed, before any later rescale. The block passed to fn is only valid
// during the call.
func (a *Accumulator[T]) SetTrace(fn func(tile.Block, *tensor.Dense[T])) {
	a.trace = fn
}

// rowMax returns the largest element of s ignoring -Inf (masked) entries.
// ok is false when every entry is masked.
func rowMax[T tensor.Float](s []T) (m T, ok bool) {
	for _, x := range s {
		if math.IsInf(float64(x), -1) {
			continue
		}
		if !ok || x > m {
			m, ok = x, true
		}
	}
	return m, ok
}
