package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/onlinesoftmax/internal/serialization"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/born-ml/onlinesoftmax/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateRunCheck(t *testing.T) {
	tests := []struct {
		name string
		dims []string
	}{
		{"scores", []string{"-n", "24", "-m", "40"}},
		{"attention", []string{"-n", "24", "-m", "40", "--qk-dim", "8", "--value-dim", "8"}},
		{"causal float64", []string{"-n", "16", "-m", "16", "--qk-dim", "4", "--value-dim", "4", "--causal", "--dtype", "float64"}},
	}
	tiling := []string{"--br", "8", "--bc", "16", "--trace"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			withDir := func(args ...string) []string {
				return append(append(append(args, tt.dims...), tiling...), "--dir", dir)
			}

			out, err := execute(t, withDir("generate", "--seed", "3")...)
			require.NoError(t, err)
			assert.Contains(t, out, "4 golden files")

			out, err = execute(t, withDir("run", "--reps", "3")...)
			require.NoError(t, err)
			assert.Contains(t, out, "reps=3")
			assert.FileExists(t, filepath.Join(dir, serialization.ParamName(serialization.ParamTrace)))

			out, err = execute(t, withDir("check")...)
			require.NoError(t, err)
			assert.Contains(t, out, "PASS "+serialization.GoldenTrace)
			assert.NotContains(t, out, "FAIL")
		})
	}
}

func TestCheckFailsOnCorruptOutput(t *testing.T) {
	dir := t.TempDir()
	dims := []string{"-n", "4", "-m", "6", "--dir", dir}

	_, err := execute(t, append([]string{"generate"}, dims...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"run"}, dims...)...)
	require.NoError(t, err)

	sumPath := filepath.Join(dir, serialization.ParamName(serialization.ParamSum))
	require.NoError(t, serialization.Save(sumPath, tensor.Float32, []float32{100, 100, 100, 100}))

	out, err := execute(t, append([]string{"check"}, dims...)...)
	require.ErrorIs(t, err, verify.ErrToleranceExceeded)
	assert.Contains(t, out, "FAIL "+serialization.GoldenSum)
}

func TestCheckFailsOnCorruptTrace(t *testing.T) {
	dir := t.TempDir()
	dims := []string{"-n", "8", "-m", "12", "--br", "4", "--bc", "5", "--trace", "--dir", dir}

	_, err := execute(t, append([]string{"generate"}, dims...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"run"}, dims...)...)
	require.NoError(t, err)

	tracePath := filepath.Join(dir, serialization.ParamName(serialization.ParamTrace))
	garbage := make([]float32, 8*12)
	for i := range garbage {
		garbage[i] = float32(i%7) / 7
	}
	require.NoError(t, serialization.Save(tracePath, tensor.Float32, garbage))

	out, err := execute(t, append([]string{"check"}, dims...)...)
	require.ErrorIs(t, err, verify.ErrToleranceExceeded)
	assert.Contains(t, out, "FAIL "+serialization.GoldenTrace)
	assert.Contains(t, out, "PASS "+serialization.GoldenMax)
}

func TestRunRejectsBadFlags(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "run", "--dir", dir, "--dtype", "int8")
	require.ErrorIs(t, err, tensor.ErrUnknownDataType)

	_, err = execute(t, "run", "--dir", dir, "--reps", "0")
	require.Error(t, err)

	_, err = execute(t, "run", "--dir", dir, "-n", "4", "-m", "4")
	require.ErrorIs(t, err, os.ErrNotExist, "missing inputs")
}

func TestVersionAndInfo(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "softmax "+version+"\n", out)

	out, err = execute(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "NumCPU:")
}
