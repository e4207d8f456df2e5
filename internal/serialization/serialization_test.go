package serialization

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadDense(t *testing.T) {
	src, err := tensor.FromSlice([]float64{
		0.5, -1.25, 3,
		math.Inf(-1), 0, 1024,
	}, 2, 3)
	require.NoError(t, err)

	for _, dt := range []tensor.DataType{tensor.Float16, tensor.Float32, tensor.Float64} {
		t.Run(dt.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), InputName(0))
			require.NoError(t, SaveDense(path, dt, src))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, int64(6*dt.Size()), info.Size())

			got, err := LoadDense[float64](path, dt, 2, 3)
			require.NoError(t, err)
			// Every value above is exactly representable in float16.
			assert.Equal(t, src.Data(), got.Data())
		})
	}
}

func TestSaveView(t *testing.T) {
	parent, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3)
	require.NoError(t, err)
	view, err := parent.View(1, 1, 2, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tensor.Float32, view))

	got := make([]float32, 4)
	require.NoError(t, Decode(got, tensor.Float32, buf.Bytes()))
	assert.Equal(t, []float32{5, 6, 8, 9}, got)
}

func TestFloat16Rounding(t *testing.T) {
	buf, err := AppendEncoded(nil, tensor.Float16, []float32{1.0 / 3, 70000})
	require.NoError(t, err)
	require.Len(t, buf, 4)

	got := make([]float64, 2)
	require.NoError(t, Decode(got, tensor.Float16, buf))
	assert.InDelta(t, 1.0/3, got[0], 1e-3)
	assert.True(t, math.IsInf(got[1], 1))
}

func TestLoadLargerThanChunk(t *testing.T) {
	n := chunkElems*2 + 17
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i % 2048)
	}
	path := filepath.Join(t.TempDir(), ParamName(2))
	require.NoError(t, Save(path, tensor.Float32, data))

	got, err := Load[float32](path, tensor.Float32, n)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.bin")
	require.NoError(t, Save(path, tensor.Float32, []float32{1, 2, 3}))

	_, err := LoadDense[float32](path, tensor.Float32, 2, 2)
	require.ErrorIs(t, err, ErrSizeMismatch)
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, path, fe.Path)
	assert.Equal(t, "load", fe.Op)

	_, err = LoadDense[float32](path, tensor.Float32, 0, 3)
	require.ErrorIs(t, err, ErrEmptyShape)

	_, err = LoadDense[float32](path, tensor.DataType(9), 1, 3)
	require.ErrorIs(t, err, tensor.ErrUnknownDataType)

	_, err = LoadDense[float32](filepath.Join(dir, "missing.bin"), tensor.Float32, 1, 3)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = Decode(make([]float64, 2), tensor.Float64, make([]byte, 15))
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "input2.bin", InputName(2))
	assert.Equal(t, "param0.bin", ParamName(ParamMax))
	assert.Equal(t, "golden.bin", GoldenName(""))
	assert.Equal(t, "m0_golden.bin", GoldenName(GoldenMax))
	assert.Equal(t, "out/s1_golden.bin", Join("out", GoldenName(GoldenTrace)))
	assert.Equal(t, "input0.bin", Join("", InputName(0)))
}
