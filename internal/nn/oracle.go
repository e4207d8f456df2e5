package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/onlinesoftmax/internal/parallel"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
)

// OracleSoftmax computes the row softmax of s in one pass per row: subtract
// the true row maximum, exponentiate, divide by the true row sum.
//
// It exists to validate the blocked kernels and is not used on any
// production path. Rows whose entries are all -Inf follow the same
// convention as the blocked kernels: zero row, Max -Inf, Sum 0.
func OracleSoftmax[T tensor.Float](s *tensor.Dense[T]) *Result[T] {
	n, m := s.Rows(), s.Cols()
	res := &Result[T]{
		Output:    tensor.Zeros[T](n, m),
		Max:       make([]T, n),
		Sum:       make([]T, n),
		LogSumExp: make([]T, n),
	}
	degenerate := make([]bool, n)

	parallel.For(n, func(i int) {
		degenerate[i] = oracleRow(s.Row(i), res.Output.Row(i), &res.Max[i], &res.Sum[i], &res.LogSumExp[i])
	}, parallel.DefaultConfig())

	for _, d := range degenerate {
		if d {
			res.DegenerateRows++
		}
	}
	return res
}

// oracleRow writes softmax(x) to out and reports whether the row was degenerate.
func oracleRow[T tensor.Float](x, out []T, maxOut, sumOut, lseOut *T) bool {
	negInf := T(math.Inf(-1))

	maxVal, ok := rowMax(x)
	if !ok {
		clear(out)
		*maxOut, *sumOut, *lseOut = negInf, 0, negInf
		return true
	}

	var sum T
	for i, v := range x {
		out[i] = T(math.Exp(float64(v - maxVal)))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}

	*maxOut, *sumOut = maxVal, sum
	*lseOut = maxVal + T(math.Log(float64(sum)))
	return false
}

// OracleAttention computes softmax(s) @ v with a fully materialised
// probability matrix.
func OracleAttention[T tensor.Float](s, v *tensor.Dense[T]) (*Result[T], error) {
	if v.Rows() != s.Cols() {
		return nil, fmt.Errorf("%w: values %v for scores %v", ErrShapeMismatch, v.Shape(), s.Shape())
	}
	probs := OracleSoftmax(s)
	out := tensor.Zeros[T](s.Rows(), v.Cols())

	parallel.For(s.Rows(), func(i int) {
		dst := out.Row(i)
		for k, p := range probs.Output.Row(i) {
			if p == 0 {
				continue
			}
			vrow := v.Row(k)
			for d := range dst {
				dst[d] += p * vrow[d]
			}
		}
	}, parallel.DefaultConfig())

	probs.Output = out
	return probs, nil
}

// OracleTrace returns the N×M matrix of P_ij blocks that the blocked kernels
// report through WithTrace under plan p. Block (i, j) holds exp(S - m_j),
// where m_j is the row maximum over column tiles 0..j; rows with no finite
// score in that prefix are zero. Only the column tiling of p matters.
func OracleTrace[T tensor.Float](s *tensor.Dense[T], p tile.Plan) (*tensor.Dense[T], error) {
	if s.Rows() != p.N || s.Cols() != p.M {
		return nil, fmt.Errorf("%w: scores %v for plan %v", ErrShapeMismatch, s.Shape(), p)
	}
	out := tensor.Zeros[T](p.N, p.M)

	parallel.For(p.N, func(i int) {
		x, dst := s.Row(i), out.Row(i)
		var (
			prefixMax T
			seen      bool
		)
		for j := 0; j < p.Tc; j++ {
			col := p.ColTile(j)
			if m, ok := rowMax(x[col.Start:col.End()]); ok && (!seen || m > prefixMax) {
				prefixMax, seen = m, true
			}
			if !seen {
				continue
			}
			for c := col.Start; c < col.End(); c++ {
				dst[c] = T(math.Exp(float64(x[c] - prefixMax)))
			}
		}
	}, parallel.DefaultConfig())
	return out, nil
}
