package tensor

import (
	"errors"
	"fmt"
)

// Dense errors.
var (
	ErrOutOfBounds   = errors.New("view extends beyond matrix")
	ErrShapeMismatch = errors.New("buffer length does not match shape")
)

// Dense is a strided row-major matrix over a flat buffer.
//
// Element (i, j) lives at data[i*stride+j]. A view returned by View shares the
// parent's buffer and stride, so sub-blocks (tiles) are extracted by index
// arithmetic only; nothing is copied.
type Dense[T Float] struct {
	data   []T
	rows   int
	cols   int
	stride int
}

// Zeros allocates a rows×cols matrix filled with zeros.
func Zeros[T Float](rows, cols int) *Dense[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("tensor.Zeros: negative dimension %dx%d", rows, cols))
	}
	return &Dense[T]{
		data:   make([]T, rows*cols),
		rows:   rows,
		cols:   cols,
		stride: cols,
	}
}

// FromSlice wraps data as a contiguous rows×cols matrix without copying.
func FromSlice[T Float](data []T, rows, cols int) (*Dense[T], error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative dimension %dx%d", ErrShapeMismatch, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: got %d elements for %dx%d", ErrShapeMismatch, len(data), rows, cols)
	}
	return &Dense[T]{data: data, rows: rows, cols: cols, stride: cols}, nil
}

// Rows returns the number of rows.
func (d *Dense[T]) Rows() int { return d.rows }

// Cols returns the number of columns.
func (d *Dense[T]) Cols() int { return d.cols }

// Stride returns the distance in elements between consecutive rows.
func (d *Dense[T]) Stride() int { return d.stride }

// Shape returns {rows, cols}.
func (d *Dense[T]) Shape() Shape { return Shape{d.rows, d.cols} }

// Raw returns the backing slice, starting at element (0, 0), and the stride.
// It lets BLAS-style code address the view without copying.
func (d *Dense[T]) Raw() ([]T, int) { return d.data, d.stride }

// Contiguous reports whether rows are packed back to back.
func (d *Dense[T]) Contiguous() bool { return d.stride == d.cols || d.rows <= 1 }

// At returns element (i, j).
func (d *Dense[T]) At(i, j int) T {
	d.checkIndex(i, j)
	return d.data[i*d.stride+j]
}

// Set stores v at (i, j).
func (d *Dense[T]) Set(i, j int, v T) {
	d.checkIndex(i, j)
	d.data[i*d.stride+j] = v
}

// Row returns row i as a slice aliasing the underlying buffer.
// The slice capacity is clipped so appends never spill into the next row.
func (d *Dense[T]) Row(i int) []T {
	if i < 0 || i >= d.rows {
		panic(fmt.Sprintf("tensor.Dense.Row: row %d out of range [0,%d)", i, d.rows))
	}
	if d.cols == 0 {
		return nil
	}
	off := i * d.stride
	return d.data[off : off+d.cols : off+d.cols]
}

// View returns the rows×cols sub-block whose top-left corner is (r0, c0).
// The view aliases d: writes through it are visible in d.
func (d *Dense[T]) View(r0, c0, rows, cols int) (*Dense[T], error) {
	if r0 < 0 || c0 < 0 || rows < 0 || cols < 0 || r0+rows > d.rows || c0+cols > d.cols {
		return nil, fmt.Errorf("%w: [%d:%d, %d:%d] of %dx%d",
			ErrOutOfBounds, r0, r0+rows, c0, c0+cols, d.rows, d.cols)
	}
	if rows == 0 || cols == 0 {
		return &Dense[T]{rows: rows, cols: cols, stride: d.stride}, nil
	}
	off := r0*d.stride + c0
	end := off + (rows-1)*d.stride + cols
	return &Dense[T]{
		data:   d.data[off:end:end],
		rows:   rows,
		cols:   cols,
		stride: d.stride,
	}, nil
}

// Fill sets every element of the view to v.
func (d *Dense[T]) Fill(v T) {
	for i := 0; i < d.rows; i++ {
		row := d.Row(i)
		for j := range row {
			row[j] = v
		}
	}
}

// CopyFrom copies src into d. Shapes must match.
func (d *Dense[T]) CopyFrom(src *Dense[T]) error {
	if d.rows != src.rows || d.cols != src.cols {
		return fmt.Errorf("%w: copy %v into %v", ErrShapeMismatch, src.Shape(), d.Shape())
	}
	for i := 0; i < d.rows; i++ {
		copy(d.Row(i), src.Row(i))
	}
	return nil
}

// Data returns the elements in packed row-major order.
// For a contiguous matrix the backing slice is returned as is.
func (d *Dense[T]) Data() []T {
	if d.Contiguous() {
		return d.data[:d.rows*d.cols]
	}
	out := make([]T, 0, d.rows*d.cols)
	for i := 0; i < d.rows; i++ {
		out = append(out, d.Row(i)...)
	}
	return out
}

// Clone returns a packed deep copy.
func (d *Dense[T]) Clone() *Dense[T] {
	out := Zeros[T](d.rows, d.cols)
	for i := 0; i < d.rows; i++ {
		copy(out.Row(i), d.Row(i))
	}
	return out
}

func (d *Dense[T]) checkIndex(i, j int) {
	if i < 0 || i >= d.rows || j < 0 || j >= d.cols {
		panic(fmt.Sprintf("tensor.Dense: index (%d, %d) out of range %dx%d", i, j, d.rows, d.cols))
	}
}

// Convert returns a packed copy of src with elements converted to U.
func Convert[U, T Float](src *Dense[T]) *Dense[U] {
	out := Zeros[U](src.rows, src.cols)
	for i := 0; i < src.rows; i++ {
		dst := out.Row(i)
		for j, v := range src.Row(i) {
			dst[j] = U(v)
		}
	}
	return out
}
