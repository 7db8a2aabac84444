package workflow

import (
	"context"

	"insights-backend/internal/shared/metrics"
	"insights-backend/internal/shared/telemetry"
)

// Dispatcher carries out an exit action once the guard lets it through.
type Dispatcher interface {
	Dispatch(ctx context.Context, a ExitAction) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, a ExitAction) error

func (f DispatchFunc) Dispatch(ctx context.Context, a ExitAction) error { return f(ctx, a) }

// ExitResult reports how an exit request was resolved.
type ExitResult struct {
	// Dispatched is the action that was carried out, if any.
	Dispatched *ExitAction
	// Prompt is true while a confirmation is waiting for stay or leave.
	Prompt bool
}

// ShouldGuard reports whether leaving would orphan an uploaded artifact.
func ShouldGuard(s Session) bool {
	return s.InWorkflow && s.Artifact != nil
}

// BeforeUnload reports whether the client must show its unload warning. No
// cleanup happens here.
func BeforeUnload(s Session) bool {
	return ShouldGuard(s)
}

// RequestExit dispatches a immediately when nothing needs guarding, otherwise
// parks it in the pending slot (replacing any earlier one) and opens the
// confirmation prompt.
func (c *Controller) RequestExit(ctx context.Context, s *Session, a ExitAction, d Dispatcher) (ExitResult, error) {
	if err := a.Validate(); err != nil {
		return ExitResult{}, err
	}
	if !ShouldGuard(*s) {
		if err := d.Dispatch(ctx, a); err != nil {
			metrics.IncExit("dispatch_failed")
			return ExitResult{}, &DispatchError{Action: a, Err: err}
		}
		if s.InWorkflow {
			s.reset()
		}
		metrics.IncExit("dispatched")
		return ExitResult{Dispatched: &a}, nil
	}

	replaced := s.PendingExit != nil
	s.PendingExit = &a
	s.PromptOpen = true
	metrics.IncExit("prompted")
	telemetry.Info("workflow.exit.prompted", map[string]any{
		"user_id":  s.UserID,
		"kind":     string(a.Kind),
		"replaced": replaced,
	})
	return ExitResult{Prompt: true}, nil
}

// Stay drops the pending exit and closes the prompt.
func (c *Controller) Stay(s *Session) {
	s.PendingExit = nil
	s.PromptOpen = false
	metrics.IncExit("stayed")
}

// Leave deletes the artifact, resets the session and dispatches the pending
// exit. If the delete fails the session is left exactly as it was.
func (c *Controller) Leave(ctx context.Context, s *Session, d Dispatcher) (ExitResult, error) {
	if s.PendingExit == nil {
		s.PromptOpen = false
		return ExitResult{}, nil
	}

	if s.Artifact != nil {
		path := s.Artifact.Path
		err := c.Storage.Delete(ctx, path)
		metrics.ObserveArtifact("delete", "exit", err)
		if err != nil {
			metrics.IncExit("leave_failed")
			telemetry.Error("workflow.exit.leave_failed", map[string]any{
				"user_id": s.UserID,
				"path":    path,
				"error":   err,
			})
			return ExitResult{Prompt: true}, &StorageDeleteError{Path: path, Err: err}
		}
		telemetry.Info("workflow.artifact.deleted", map[string]any{
			"user_id": s.UserID,
			"path":    path,
			"reason":  "exit",
		})
	}

	action := *s.PendingExit
	s.reset()
	metrics.IncExit("left")
	if err := d.Dispatch(ctx, action); err != nil {
		return ExitResult{}, &DispatchError{Action: action, Err: err}
	}
	return ExitResult{Dispatched: &action}, nil
}
