package serialization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
	"github.com/x448/float16"
)

// AppendEncoded appends data to buf in dt's little-endian encoding.
// Conversion to a narrower type rounds to nearest even; values outside the
// float16 range become ±Inf.
func AppendEncoded[T tensor.Float](buf []byte, dt tensor.DataType, data []T) ([]byte, error) {
	switch dt {
	case tensor.Float16:
		for _, v := range data {
			buf = binary.LittleEndian.AppendUint16(buf, float16.Fromfloat32(float32(v)).Bits())
		}
	case tensor.Float32:
		for _, v := range data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		}
	case tensor.Float64:
		for _, v := range data {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(v)))
		}
	default:
		return buf, fmt.Errorf("%w: %v", tensor.ErrUnknownDataType, dt)
	}
	return buf, nil
}

// Write streams d to w row by row in dt's encoding.
func Write[T tensor.Float](w io.Writer, dt tensor.DataType, d *tensor.Dense[T]) error {
	if err := checkDataType(dt); err != nil {
		return err
	}
	buf := make([]byte, 0, d.Cols()*dt.Size())
	for i := 0; i < d.Rows(); i++ {
		var err error
		if buf, err = AppendEncoded(buf[:0], dt, d.Row(i)); err != nil {
			return err
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return nil
}

// SaveDense writes d to path, replacing any existing file.
func SaveDense[T tensor.Float](path string, dt tensor.DataType, d *tensor.Dense[T]) (err error) {
	if err := checkDataType(dt); err != nil {
		return &FileError{Path: path, Op: "save", Err: err}
	}

	//nolint:gosec // G304: output path is chosen by the user
	file, err := os.Create(path)
	if err != nil {
		return &FileError{Path: path, Op: "save", Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &FileError{Path: path, Op: "save", Err: cerr}
		}
	}()

	w := bufio.NewWriter(file)
	if err := Write(w, dt, d); err != nil {
		return &FileError{Path: path, Op: "save", Err: err}
	}
	if err := w.Flush(); err != nil {
		return &FileError{Path: path, Op: "save", Err: err}
	}
	return nil
}

// Save writes a flat vector to path.
func Save[T tensor.Float](path string, dt tensor.DataType, data []T) error {
	d, err := tensor.FromSlice(data, 1, len(data))
	if err != nil {
		return &FileError{Path: path, Op: "save", Err: err}
	}
	return SaveDense(path, dt, d)
}

func checkDataType(dt tensor.DataType) error {
	switch dt {
	case tensor.Float16, tensor.Float32, tensor.Float64:
		return nil
	default:
		return fmt.Errorf("%w: %v", tensor.ErrUnknownDataType, dt)
	}
}
