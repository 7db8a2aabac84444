package workflow

import (
	"strings"
	"time"

	"insights-backend/internal/insights"
)

// File is the document chosen in the upload stage.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Artifact is the stored copy of the uploaded file.
type Artifact struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// ExitKind names what the user was trying to do when leaving the workflow.
type ExitKind string

const (
	ExitNavigate    ExitKind = "navigate"
	ExitSearch      ExitKind = "search"
	ExitViewInsight ExitKind = "view_insight"
	ExitSignOut     ExitKind = "sign_out"
)

// ExitAction is a navigation attempt suspended by the exit guard.
type ExitAction struct {
	Kind   ExitKind `json:"kind"`
	Target string   `json:"target,omitempty"`
}

// Validate checks the kind and that kinds needing a target have one.
func (a ExitAction) Validate() error {
	switch a.Kind {
	case ExitNavigate, ExitSearch, ExitViewInsight:
		if strings.TrimSpace(a.Target) == "" {
			return ErrInvalidExit
		}
		return nil
	case ExitSignOut:
		return nil
	}
	return ErrInvalidExit
}

// Session is one user's in-progress workflow. It is never persisted.
type Session struct {
	UserID      string
	InWorkflow  bool
	Stage       Stage
	File        *File
	Artifact    *Artifact
	Extracted   []insights.Record
	PendingExit *ExitAction
	PromptOpen  bool
	UpdatedAt   time.Time
}

// reset clears all workflow state, keeping the owner.
func (s *Session) reset() {
	*s = Session{UserID: s.UserID, UpdatedAt: s.UpdatedAt}
}

// Clone returns a copy that shares no mutable state with s. File bytes are
// shared since they are never mutated after selection.
func (s Session) Clone() Session {
	out := s
	if s.File != nil {
		f := *s.File
		out.File = &f
	}
	if s.Artifact != nil {
		a := *s.Artifact
		out.Artifact = &a
	}
	if s.PendingExit != nil {
		p := *s.PendingExit
		out.PendingExit = &p
	}
	if s.Extracted != nil {
		out.Extracted = make([]insights.Record, len(s.Extracted))
		for i, r := range s.Extracted {
			out.Extracted[i] = r.Clone()
		}
	}
	return out
}
