package serialization

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/x448/float16"
	"golang.org/x/exp/mmap"
)

// Decode decodes src, which must hold exactly len(dst) elements of type dt,
// into dst.
func Decode[T tensor.Float](dst []T, dt tensor.DataType, src []byte) error {
	if err := checkDataType(dt); err != nil {
		return err
	}
	if len(src) != len(dst)*dt.Size() {
		return fmt.Errorf("%w: %d bytes for %d %v elements", ErrSizeMismatch, len(src), len(dst), dt)
	}

	switch dt {
	case tensor.Float16:
		for i := range dst {
			dst[i] = T(float16.Frombits(binary.LittleEndian.Uint16(src[2*i:])).Float32())
		}
	case tensor.Float32:
		for i := range dst {
			dst[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:])))
		}
	case tensor.Float64:
		for i := range dst {
			dst[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(src[8*i:])))
		}
	}
	return nil
}

// LoadDense reads a rows×cols matrix of dt elements from path and converts it
// to T. The file size must match the shape exactly.
func LoadDense[T tensor.Float](path string, dt tensor.DataType, rows, cols int) (*tensor.Dense[T], error) {
	shape := tensor.Shape{rows, cols}
	if err := shape.Validate(); err != nil {
		return nil, &FileError{Path: path, Op: "load", Err: fmt.Errorf("%w: %v", ErrEmptyShape, err)}
	}
	if err := checkDataType(dt); err != nil {
		return nil, &FileError{Path: path, Op: "load", Err: err}
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Op: "load", Err: err}
	}
	defer func() { _ = r.Close() }() // read-only mapping, nothing to flush

	size := dt.Size()
	if want := shape.NumElements() * size; r.Len() != want {
		return nil, &FileError{Path: path, Op: "load", Err: fmt.Errorf(
			"%w: %d bytes on disk, %v of %v needs %d", ErrSizeMismatch, r.Len(), shape, dt, want)}
	}

	out := tensor.Zeros[T](rows, cols)
	data := out.Data()
	buf := make([]byte, min(chunkElems, len(data))*size)
	for off := 0; off < len(data); off += chunkElems {
		n := min(chunkElems, len(data)-off)
		chunk := buf[:n*size]
		if _, err := r.ReadAt(chunk, int64(off*size)); err != nil {
			return nil, &FileError{Path: path, Op: "load", Err: err}
		}
		if err := Decode(data[off:off+n], dt, chunk); err != nil {
			return nil, &FileError{Path: path, Op: "load", Err: err}
		}
	}
	return out, nil
}

// Load reads a flat vector of n elements from path.
func Load[T tensor.Float](path string, dt tensor.DataType, n int) ([]T, error) {
	d, err := LoadDense[T](path, dt, 1, n)
	if err != nil {
		return nil, err
	}
	return d.Data(), nil
}
