// Package tensor provides the dense matrix view and element types used by the
// blocked softmax kernels.
package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDataType is returned when a data type name cannot be parsed.
var ErrUnknownDataType = errors.New("unknown data type")

// Float is the constraint for element types the kernels compute in.
type Float interface {
	~float32 | ~float64
}

// DataType is the element type of a flat binary tensor file.
type DataType int

// Supported on-disk element types.
const (
	Float16 DataType = iota
	Float32
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float16:
		return 2
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseDataType maps a name such as "fp16" or "float32" to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float16", "fp16", "f16", "half":
		return Float16, nil
	case "float32", "fp32", "f32":
		return Float32, nil
	case "float64", "fp64", "f64", "double":
		return Float64, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
	}
}
