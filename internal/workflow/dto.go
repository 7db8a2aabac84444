package workflow

import (
	"time"

	"insights-backend/internal/insights"
)

type fileView struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

type sessionView struct {
	InWorkflow  bool              `json:"inWorkflow"`
	Stage       string            `json:"stage"`
	StageIndex  int               `json:"stageIndex"`
	File        *fileView         `json:"file,omitempty"`
	Artifact    *Artifact         `json:"artifact,omitempty"`
	Extracted   []insights.Record `json:"extracted"`
	PendingExit *ExitAction       `json:"pendingExit,omitempty"`
	PromptOpen  bool              `json:"promptOpen"`
	Guarded     bool              `json:"guarded"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type exitView struct {
	Session    sessionView `json:"session"`
	Dispatched *ExitAction `json:"dispatched,omitempty"`
	Prompt     bool        `json:"prompt"`
}

type exitRequest struct {
	Kind   ExitKind `json:"kind" binding:"required"`
	Target string   `json:"target"`
}

func toView(s Session) sessionView {
	v := sessionView{
		InWorkflow:  s.InWorkflow,
		Stage:       s.Stage.String(),
		StageIndex:  int(s.Stage),
		Artifact:    s.Artifact,
		Extracted:   s.Extracted,
		PendingExit: s.PendingExit,
		PromptOpen:  s.PromptOpen,
		Guarded:     ShouldGuard(s),
		UpdatedAt:   s.UpdatedAt,
	}
	if s.File != nil {
		v.File = &fileView{Name: s.File.Name, ContentType: s.File.ContentType, Size: len(s.File.Data)}
	}
	if v.Extracted == nil {
		v.Extracted = []insights.Record{}
	}
	return v
}
