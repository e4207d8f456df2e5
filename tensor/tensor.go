// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
)

// Type aliases for public API

// Float is the constraint for element types the kernels compute in.
type Float = tensor.Float

// Dense is a strided row-major matrix. Views alias their parent.
type Dense[T Float] = tensor.Dense[T]

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType is the element type of a flat binary tensor file.
type DataType = tensor.DataType

// Data type constants.
const (
	Float16 DataType = tensor.Float16
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Errors returned by this package.
var (
	ErrOutOfBounds     = tensor.ErrOutOfBounds
	ErrShapeMismatch   = tensor.ErrShapeMismatch
	ErrUnknownDataType = tensor.ErrUnknownDataType
)

// Zeros allocates a rows×cols matrix filled with zeros.
func Zeros[T Float](rows, cols int) *Dense[T] {
	return tensor.Zeros[T](rows, cols)
}

// FromSlice wraps data as a contiguous rows×cols matrix without copying.
func FromSlice[T Float](data []T, rows, cols int) (*Dense[T], error) {
	return tensor.FromSlice(data, rows, cols)
}

// Randn returns a rows×cols matrix of standard normal samples drawn from rng.
func Randn[T Float](rows, cols int, rng *rand.Rand) *Dense[T] {
	return tensor.Randn[T](rows, cols, rng)
}

// Uniform returns a rows×cols matrix drawn uniformly from [lo, hi).
func Uniform[T Float](rows, cols int, lo, hi float64, rng *rand.Rand) *Dense[T] {
	return tensor.Uniform[T](rows, cols, lo, hi, rng)
}

// Convert returns a packed copy of src with elements converted to U.
func Convert[U, T Float](src *Dense[T]) *Dense[U] {
	return tensor.Convert[U](src)
}

// ParseDataType maps a name such as "fp16" or "float32" to a DataType.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}
