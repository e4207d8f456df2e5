package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// relL2 returns ‖got - want‖₂ / ‖want‖₂.
func relL2[T tensor.Float](got, want []T) float64 {
	g, w := toFloat64(got), toFloat64(want)
	return floats.Distance(g, w, 2) / floats.Norm(w, 2)
}

func toFloat64[T tensor.Float](x []T) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func randomScores(seed int64, n, m int) *tensor.Dense[float64] {
	return tensor.Uniform[float64](n, m, -6, 6, rand.New(rand.NewSource(seed)))
}

func TestOnlineSoftmaxMatchesOracle(t *testing.T) {
	tests := []struct {
		n, m, br, bc int
	}{
		{1, 1, 1, 1},
		{1, 7, 1, 3},
		{7, 1, 3, 1},
		{4, 4, 1, 1},
		{16, 32, 16, 32},
		{10, 10, 4, 4},
		{33, 65, 8, 16},
		{5, 9, 100, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d/%dx%d", tt.n, tt.m, tt.br, tt.bc), func(t *testing.T) {
			s := randomScores(int64(tt.n*1000+tt.m), tt.n, tt.m)
			want := OracleSoftmax(s)

			got, err := OnlineSoftmax(s, Config{BlockRows: tt.br, BlockCols: tt.bc})
			require.NoError(t, err)
			require.Equal(t, s.Shape(), got.Output.Shape())

			assert.LessOrEqual(t, relL2(got.Output.Data(), want.Output.Data()), 1e-6)
			assert.Equal(t, want.Max, got.Max)
			for i := 0; i < tt.n; i++ {
				assert.InEpsilon(t, want.Sum[i], got.Sum[i], 1e-12, "row %d", i)
				assert.InDelta(t, want.LogSumExp[i], got.LogSumExp[i], 1e-12, "row %d", i)
				assert.InDelta(t, 1.0, floats.Sum(got.Output.Row(i)), 1e-12, "row %d", i)
			}
			assert.Zero(t, got.DegenerateRows)
		})
	}
}

func TestOnlineSoftmaxPlan(t *testing.T) {
	s := randomScores(1, 10, 10)
	res, err := OnlineSoftmax(s, Config{BlockRows: 4, BlockCols: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Plan.Tr)
	assert.Equal(t, 3, res.Plan.Tc)
	assert.Equal(t, 2, res.Plan.RowTile(2).Size)

	res, err = OnlineSoftmax(s, Config{BlockRows: 64, BlockCols: 64})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Plan.Br)
	assert.Equal(t, 1, res.Plan.NumBlocks())
}

// TestOnlineSoftmaxDeterministic checks that the worker count never changes
// a single bit of the result.
func TestOnlineSoftmaxDeterministic(t *testing.T) {
	s := randomScores(3, 40, 50)
	base, err := OnlineSoftmax(s, Config{BlockRows: 3, BlockCols: 7, Workers: 1})
	require.NoError(t, err)

	for _, workers := range []int{0, 2, 8} {
		res, err := OnlineSoftmax(s, Config{BlockRows: 3, BlockCols: 7, Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, base.Output.Data(), res.Output.Data(), "workers=%d", workers)
		assert.Equal(t, base.Sum, res.Sum, "workers=%d", workers)
	}
}

// TestOnlineSoftmaxQKProduct runs the blocked kernel on a 128×128 score
// matrix built from a 128×16 query/key product.
func TestOnlineSoftmaxQKProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(128))
	q := tensor.Randn[float32](128, 16, rng)
	k := tensor.Randn[float32](128, 16, rng)
	s, err := Scores(q, k, 1, false)
	require.NoError(t, err)

	want := OracleSoftmax(s)
	got, err := OnlineSoftmax(s, Config{BlockRows: 8, BlockCols: 4})
	require.NoError(t, err)

	diff := floats.Distance(toFloat64(got.Output.Data()), toFloat64(want.Output.Data()), 2)
	assert.Less(t, diff, 1e-3)
}

// TestOnlineAttentionScenario runs the device test geometry: 16 row tiles of
// 16 rows and 32 column tiles of 16 columns over a 256×512 score matrix, head
// dim 16. Max, sum and the per-block trace are held to the device checker's
// bounds.
func TestOnlineAttentionScenario(t *testing.T) {
	const (
		br, bc = 16, 16
		n, m   = 16 * br, 32 * bc
		d      = 16
	)
	rng := rand.New(rand.NewSource(42))
	q := tensor.Randn[float32](n, d, rng)
	k := tensor.Randn[float32](m, d, rng)
	v := tensor.Randn[float32](m, d, rng)
	s, err := Scores(q, k, 0, false)
	require.NoError(t, err)
	cfg := Config{BlockRows: br, BlockCols: bc}

	trace := tensor.Zeros[float32](n, m)
	collect := WithTrace(func(b tile.Block, p *tensor.Dense[float32]) {
		dst, err := tile.View(trace, b)
		if err == nil {
			err = dst.CopyFrom(p)
		}
		assert.NoError(t, err)
	})

	want := OracleSoftmax(s)
	got, err := OnlineSoftmax(s, cfg, collect)
	require.NoError(t, err)
	require.Equal(t, 16, got.Plan.Tr)
	require.Equal(t, 32, got.Plan.Tc)

	maxDiff := floats.Distance(toFloat64(got.Max), toFloat64(want.Max), 2)
	assert.Less(t, maxDiff, 1e-4)
	assert.Less(t, relL2(got.Sum, want.Sum), 1e-2)
	assert.Less(t, relL2(got.Output.Data(), want.Output.Data()), 1e-4)

	wantTrace, err := OracleTrace(s, got.Plan)
	require.NoError(t, err)
	assert.Less(t, relL2(trace.Data(), wantTrace.Data()), 1e-4)

	wantAttn, err := OracleAttention(s, v)
	require.NoError(t, err)
	gotAttn, err := OnlineAttention(s, v, cfg)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{n, d}, gotAttn.Output.Shape())
	assert.Less(t, relL2(gotAttn.Output.Data(), wantAttn.Output.Data()), 1e-4)
	assert.Equal(t, got.Max, gotAttn.Max)
}

// TestOracleTraceMatchesKernelTrace compares the reference trace with what
// both blocked variants report, including masked and degenerate rows.
func TestOracleTraceMatchesKernelTrace(t *testing.T) {
	inf := math.Inf(-1)
	s := randomScores(21, 7, 10)
	for c := 0; c < 10; c++ {
		s.Set(3, c, inf)
	}
	for c := 0; c < 6; c++ {
		s.Set(5, c, inf)
	}
	cfg := Config{BlockRows: 3, BlockCols: 4, Workers: 2}
	v := randomScores(22, 10, 2)

	for _, weighted := range []bool{false, true} {
		t.Run(fmt.Sprintf("weighted=%v", weighted), func(t *testing.T) {
			trace := tensor.Zeros[float64](7, 10)
			collect := WithTrace(func(b tile.Block, p *tensor.Dense[float64]) {
				dst, err := tile.View(trace, b)
				if err == nil {
					err = dst.CopyFrom(p)
				}
				assert.NoError(t, err)
			})

			var (
				res *Result[float64]
				err error
			)
			if weighted {
				res, err = OnlineAttention(s, v, cfg, collect)
			} else {
				res, err = OnlineSoftmax(s, cfg, collect)
			}
			require.NoError(t, err)

			want, err := OracleTrace(s, res.Plan)
			require.NoError(t, err)
			assert.Equal(t, want.Data(), trace.Data())
			assert.Equal(t, make([]float64, 10), want.Row(3))
			assert.Equal(t, make([]float64, 4), want.Row(5)[:4])
		})
	}

	plan, err := tile.NewPlan(3, 3, 1, 1)
	require.NoError(t, err)
	_, err = OracleTrace(s, plan)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestOnlineSoftmaxCausal(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	q := tensor.Randn[float64](12, 4, rng)
	k := tensor.Randn[float64](12, 4, rng)
	s, err := Scores(q, k, 0, true)
	require.NoError(t, err)

	want := OracleSoftmax(s)
	got, err := OnlineSoftmax(s, Config{BlockRows: 4, BlockCols: 4})
	require.NoError(t, err)

	assert.LessOrEqual(t, relL2(got.Output.Data(), want.Output.Data()), 1e-6)
	for i := 0; i < 12; i++ {
		for j := i + 1; j < 12; j++ {
			assert.Zero(t, got.Output.At(i, j), "(%d,%d)", i, j)
		}
	}
	assert.Zero(t, got.DegenerateRows)
}

func TestOnlineSoftmaxDegenerateRows(t *testing.T) {
	inf := math.Inf(-1)
	s := mustDense(t, 3, 5,
		1, 2, 3, 4, 5,
		inf, inf, inf, inf, inf,
		inf, 0, inf, inf, inf,
	)

	got, err := OnlineSoftmax(s, Config{BlockRows: 2, BlockCols: 2})
	require.NoError(t, err)
	want := OracleSoftmax(s)

	assert.Equal(t, 1, got.DegenerateRows)
	assert.Equal(t, want.DegenerateRows, got.DegenerateRows)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, got.Output.Row(1))
	assert.Equal(t, []float64{0, 1, 0, 0, 0}, got.Output.Row(2))
	assert.True(t, math.IsInf(got.Max[1], -1))
	assert.True(t, math.IsInf(got.LogSumExp[1], -1))
	assert.Equal(t, 0.0, got.Sum[1])
	assert.Equal(t, want.Output.Row(1), got.Output.Row(1))
	assert.InDeltaSlice(t, want.Output.Row(0), got.Output.Row(0), 1e-12)
}

func TestOnlineSoftmaxErrors(t *testing.T) {
	s := randomScores(5, 4, 4)

	_, err := OnlineSoftmax(s, Config{BlockRows: 0, BlockCols: 2})
	require.ErrorIs(t, err, tile.ErrInvalidDimension)

	_, err = OnlineSoftmax(tensor.Zeros[float64](0, 4), DefaultConfig())
	require.ErrorIs(t, err, tile.ErrInvalidDimension)

	_, err = OnlineSoftmax[float64](nil, DefaultConfig())
	require.Error(t, err)

	_, err = OnlineAttention(s, nil, DefaultConfig())
	require.ErrorIs(t, err, ErrVariant)

	_, err = OnlineAttention(s, tensor.Zeros[float64](3, 2), DefaultConfig())
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestStateError(t *testing.T) {
	err := fmt.Errorf("run: %w", &StateError{RowTile: 2, Step: 1, Err: ErrOutOfOrder})

	var se *StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.RowTile)
	require.ErrorIs(t, err, ErrOutOfOrder)
	assert.Contains(t, err.Error(), "row tile 2")

	fin := &StateError{RowTile: 0, Step: -1, Err: ErrIncomplete}
	assert.Contains(t, fin.Error(), "finalize")
}

func TestOnlineSoftmaxTrace(t *testing.T) {
	s := randomScores(11, 9, 13)
	cfg := Config{BlockRows: 4, BlockCols: 5, Workers: 3}

	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	res, err := OnlineSoftmax(s, cfg, WithTrace(func(b tile.Block, p *tensor.Dense[float64]) {
		assert.Equal(t, b.Row.Size, p.Rows())
		assert.Equal(t, b.Col.Size, p.Cols())
		for i := 0; i < p.Rows(); i++ {
			for _, x := range p.Row(i) {
				assert.GreaterOrEqual(t, x, 0.0)
				assert.LessOrEqual(t, x, 1.0)
			}
		}
		mu.Lock()
		seen[b.String()]++
		mu.Unlock()
	}))
	require.NoError(t, err)

	assert.Len(t, seen, res.Plan.NumBlocks())
	for b, n := range seen {
		assert.Equal(t, 1, n, "block %s traced more than once", b)
	}
}
