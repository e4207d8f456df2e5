package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrSizeMismatch = errors.New("file size does not match shape and data type")
	ErrEmptyShape   = errors.New("tensor shape has no elements")
)

// FileError provides detailed information about a tensor file that could not
// be used.
type FileError struct {
	Path string // File involved
	Op   string // "load" or "save"
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}
