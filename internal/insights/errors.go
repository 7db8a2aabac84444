package insights

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("insight not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotRoot      = errors.New("insight is not a root")
	// ErrVersionConflict means the record changed since it was read.
	ErrVersionConflict = errors.New("insight was modified concurrently")
)

// UnknownDimensionError is returned when a filter names a dimension the root
// does not declare.
type UnknownDimensionError struct {
	RootID    string
	Dimension string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("dimension %q is not declared on insight %s", e.Dimension, e.RootID)
}

func (e *UnknownDimensionError) Unwrap() error { return ErrInvalidInput }
