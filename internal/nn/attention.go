package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Scores computes the attention score matrix S = scale · Q · Kᵀ.
//
// Parameters:
//   - q: queries [n, d].
//   - k: keys [m, d].
//   - scale: multiplier applied to every dot product; 0 means 1/sqrt(d).
//   - causal: mask key positions j > i with -Inf.
//
// Returns:
//   - *tensor.Dense[T]: scores [n, m].
//
// float64 inputs go through gonum's GEMM; other element types use plain loops.
func Scores[T tensor.Float](q, k *tensor.Dense[T], scale float64, causal bool) (*tensor.Dense[T], error) {
	if err := checkQK(q, k); err != nil {
		return nil, err
	}
	if scale == 0 {
		scale = 1 / math.Sqrt(float64(q.Cols()))
	}

	var out *tensor.Dense[T]
	if q64, ok := any(q).(*tensor.Dense[float64]); ok {
		k64 := any(k).(*tensor.Dense[float64])
		out = any(gemmScores(q64, k64, scale)).(*tensor.Dense[T])
	} else {
		out = tensor.Zeros[T](q.Rows(), k.Rows())
		for i := 0; i < q.Rows(); i++ {
			scoreRow(out.Row(i), q.Row(i), k, 0, T(scale), false, i)
		}
	}

	if causal {
		negInf := T(math.Inf(-1))
		for i := 0; i < out.Rows(); i++ {
			row := out.Row(i)
			for j := i + 1; j < len(row); j++ {
				row[j] = negInf
			}
		}
	}
	return out, nil
}

// StandardAttention computes softmax(scale · Q · Kᵀ) @ V with the full score
// and probability matrices materialised. It is the reference FlashAttention
// is validated against.
func StandardAttention[T tensor.Float](q, k, v *tensor.Dense[T], scale float64, causal bool) (*Result[T], error) {
	s, err := Scores(q, k, scale, causal)
	if err != nil {
		return nil, err
	}
	return OracleAttention(s, v)
}

func checkQK[T tensor.Float](q, k *tensor.Dense[T]) error {
	if q.Rows() == 0 || k.Rows() == 0 || q.Cols() == 0 {
		return fmt.Errorf("%w: empty query %v or key %v", ErrShapeMismatch, q.Shape(), k.Shape())
	}
	if q.Cols() != k.Cols() {
		return fmt.Errorf("%w: query %v and key %v head dims differ", ErrShapeMismatch, q.Shape(), k.Shape())
	}
	return nil
}

// gemmScores runs scale · Q · Kᵀ through gonum on the tensors' own buffers.
func gemmScores(q, k *tensor.Dense[float64], scale float64) *tensor.Dense[float64] {
	out := tensor.Zeros[float64](q.Rows(), k.Rows())
	c := asMat(out)
	c.Mul(asMat(q), asMat(k).T())
	if scale != 1 {
		c.Scale(scale, c)
	}
	return out
}

// asMat wraps d as a gonum matrix sharing its memory, strides included.
func asMat(d *tensor.Dense[float64]) *mat.Dense {
	data, stride := d.Raw()
	var m mat.Dense
	m.SetRawMatrix(blas64.General{
		Rows:   d.Rows(),
		Cols:   d.Cols(),
		Stride: stride,
		Data:   data,
	})
	return &m
}

// scoreRow fills dst[c] = scale · q · k[kStart+c] for one query, masking key
// positions after queryPos when causal is set.
func scoreRow[T tensor.Float](dst, q []T, k *tensor.Dense[T], kStart int, scale T, causal bool, queryPos int) {
	negInf := T(math.Inf(-1))
	for c := range dst {
		j := kStart + c
		if causal && j > queryPos {
			dst[c] = negInf
			continue
		}
		kVec := k.Row(j)
		var dot T
		for d, qd := range q {
			dot += qd * kVec[d]
		}
		dst[c] = dot * scale
	}
}
