package tensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Shape lists tensor dimensions, outermost first. Matrices are {rows, cols};
// the row vectors written for per-row statistics are {1, n}.
type Shape []int

// NumElements returns the product of the dimensions; an empty shape holds one
// element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate reports the first dimension that is not positive.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d <= 0 }); i >= 0 {
		return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, s[i])
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool { return slices.Equal(s, other) }

// String formats the shape as "(2, 3)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
