package nn

import (
	"errors"
	"fmt"
)

// Accumulator state-machine errors.
var (
	ErrNoUpdates     = errors.New("finalize called before any column tile was consumed")
	ErrIncomplete    = errors.New("finalize called before all column tiles were consumed")
	ErrFinalized     = errors.New("accumulator already finalized")
	ErrOutOfOrder    = errors.New("column tile consumed out of order")
	ErrShapeMismatch = errors.New("block shape does not match accumulator")
	ErrVariant       = errors.New("value block does not match accumulator variant")
)

// StateError reports which row tile and column step hit a state-machine error.
type StateError struct {
	RowTile int   // Row tile index.
	Step    int   // Column tile index being processed, -1 for finalize.
	Err     error // One of the sentinel errors above.
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("row tile %d: finalize: %v", e.RowTile, e.Err)
	}
	return fmt.Sprintf("row tile %d: column tile %d: %v", e.RowTile, e.Step, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *StateError) Unwrap() error { return e.Err }
