package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	assert.Equal(t, int64(n), counter)
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var order []int
	For(5, func(i int) {
		order = append(order, i)
	}, cfg)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_EveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}

	hits := make([]int32, 17)
	For(len(hits), func(i int) {
		atomic.AddInt32(&hits[i], 1)
	}, cfg)

	for i, h := range hits {
		assert.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestWithWorkers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg, cfg.WithWorkers(0))

	one := cfg.WithWorkers(1)
	assert.False(t, one.Enabled)

	four := cfg.WithWorkers(4)
	assert.True(t, four.Enabled)
	assert.Equal(t, 4, four.NumWorkers)
}

func TestForErr(t *testing.T) {
	for _, cfg := range []Config{
		{Enabled: false},
		{Enabled: true, NumWorkers: 4, MinChunkSize: 1},
	} {
		var counter int64
		err := ForErr(100, func(_ int) error {
			atomic.AddInt64(&counter, 1)
			return nil
		}, cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(100), counter)
	}
}

func TestForErr_ReturnsError(t *testing.T) {
	boom := errors.New("boom")

	for _, cfg := range []Config{
		{Enabled: false},
		{Enabled: true, NumWorkers: 2, MinChunkSize: 1},
	} {
		err := ForErr(50, func(i int) error {
			if i == 7 {
				return boom
			}
			return nil
		}, cfg)
		require.ErrorIs(t, err, boom)
	}
}

func TestForErr_SequentialStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")

	var calls int
	err := ForErr(10, func(i int) error {
		calls++
		if i == 2 {
			return boom
		}
		return nil
	}, Config{Enabled: false})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfgSeq)
		}
	})
}
