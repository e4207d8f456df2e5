package tensor

import (
	"math"
	"math/rand"
)

// Randn returns a rows×cols matrix of standard normal samples drawn from rng
// with the Box-Muller transform.
// Note: Uses math/rand (not crypto/rand) so runs are reproducible from a seed.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	q := tensor.Randn[float32](128, 16, rng)
func Randn[T Float](rows, cols int, rng *rand.Rand) *Dense[T] {
	out := Zeros[T](rows, cols)
	data := out.data
	for i := 0; i < len(data); i += 2 {
		u1 := 1 - rng.Float64() // (0, 1], keeps Log finite
		u2 := rng.Float64()
		r := math.Sqrt(-2.0 * math.Log(u1))
		data[i] = T(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = T(r * math.Sin(2.0*math.Pi*u2))
		}
	}
	return out
}

// Uniform returns a rows×cols matrix with elements drawn uniformly from [lo, hi).
func Uniform[T Float](rows, cols int, lo, hi float64, rng *rand.Rand) *Dense[T] {
	out := Zeros[T](rows, cols)
	for i := range out.data {
		out.data[i] = T(lo + (hi-lo)*rng.Float64())
	}
	return out
}
