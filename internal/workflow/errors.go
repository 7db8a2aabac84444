package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNoFile          = errors.New("no file selected")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidExit     = errors.New("invalid exit action")
	ErrSessionNotFound = errors.New("workflow session not found")
)

// InvalidTransitionError reports an operation invoked in the wrong stage.
type InvalidTransitionError struct {
	Op         string
	Stage      Stage
	InWorkflow bool
}

func (e *InvalidTransitionError) Error() string {
	if !e.InWorkflow {
		return fmt.Sprintf("%s: not in workflow", e.Op)
	}
	return fmt.Sprintf("%s: not allowed in stage %s", e.Op, e.Stage)
}

// StorageWriteError means the artifact upload failed. The session stays in
// extraction with no artifact.
type StorageWriteError struct {
	FileName string
	Err      error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.FileName, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageDeleteError means the artifact could not be removed on exit. The
// session and pending exit are unchanged.
type StorageDeleteError struct {
	Path string
	Err  error
}

func (e *StorageDeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Path, e.Err)
}

func (e *StorageDeleteError) Unwrap() error { return e.Err }

// DispatchError wraps a failure to carry out an exit action.
type DispatchError struct {
	Action ExitAction
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Action.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
