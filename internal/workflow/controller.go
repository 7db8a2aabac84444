package workflow

import (
	"context"
	"time"

	"insights-backend/internal/extract"
	"insights-backend/internal/insights"
	"insights-backend/internal/shared/metrics"
	"insights-backend/internal/shared/telemetry"
)

// Controller drives sessions through the workflow stages. It never leaves a
// session partially updated when a collaborator fails, except that a
// successful upload is kept when extraction fails so a retry can reuse it.
type Controller struct {
	Storage   Storage
	Extractor Extractor
	Publisher Publisher
	Now       func() time.Time
}

// PublishMeta identifies who is publishing.
type PublishMeta struct {
	UploadedBy string
	RequestID  string
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Enter starts the workflow. Entering again keeps current progress.
func (c *Controller) Enter(s *Session) {
	if s.InWorkflow {
		return
	}
	s.reset()
	s.InWorkflow = true
	s.Stage = StageUpload
	telemetry.Info("workflow.enter", map[string]any{"user_id": s.UserID})
}

// SelectFile stores the chosen file and moves to extraction.
func (c *Controller) SelectFile(s *Session, f File) error {
	if err := expect(s, "select_file", StageUpload); err != nil {
		return err
	}
	if len(f.Data) == 0 {
		return ErrEmptyFile
	}
	s.File = &f
	metrics.ObserveUploadBytes(int64(len(f.Data)))
	c.moveTo(s, StageExtraction)
	return nil
}

// RunExtraction uploads the file if not yet stored, runs extraction and moves
// to structuring.
func (c *Controller) RunExtraction(ctx context.Context, s *Session) error {
	if err := expect(s, "run_extraction", StageExtraction); err != nil {
		return err
	}
	if s.File == nil {
		return ErrNoFile
	}

	if s.Artifact == nil {
		art, err := c.Storage.Upload(ctx, *s.File)
		metrics.ObserveArtifact("upload", "extraction", err)
		if err != nil {
			metrics.IncWorkflowError("run_extraction", "storage_write")
			telemetry.Error("workflow.upload_failed", map[string]any{
				"user_id":   s.UserID,
				"file_name": s.File.Name,
				"error":     err,
			})
			return &StorageWriteError{FileName: s.File.Name, Err: err}
		}
		s.Artifact = &art
		telemetry.Info("workflow.artifact.uploaded", map[string]any{
			"user_id": s.UserID,
			"path":    art.Path,
			"size":    art.Size,
		})
	}

	recs, err := c.Extractor.ExtractInsights(ctx, extract.Source{
		Path:        s.Artifact.Path,
		URL:         s.Artifact.URL,
		ContentType: s.Artifact.ContentType,
		FileName:    s.File.Name,
	})
	if err != nil {
		metrics.IncWorkflowError("run_extraction", "extract")
		telemetry.Error("workflow.extraction_failed", map[string]any{
			"user_id": s.UserID,
			"path":    s.Artifact.Path,
			"error":   err,
		})
		return err
	}
	if recs == nil {
		recs = []insights.Record{}
	}
	s.Extracted = recs
	c.moveTo(s, StageStructuring)
	return nil
}

// Advance moves from structuring to validation or validation to publish.
func (c *Controller) Advance(s *Session) error {
	if err := expect(s, "advance", StageStructuring, StageValidation); err != nil {
		return err
	}
	c.moveTo(s, s.Stage+1)
	return nil
}

// EditAgain steps back one stage from validation or publish, keeping state.
func (c *Controller) EditAgain(s *Session) error {
	if err := expect(s, "edit_again", StageValidation, StagePublish); err != nil {
		return err
	}
	c.moveTo(s, s.Stage-1)
	return nil
}

// Publish persists the extracted records and ends the workflow.
func (c *Controller) Publish(ctx context.Context, s *Session, meta PublishMeta) error {
	if err := expect(s, "publish", StagePublish); err != nil {
		return err
	}
	if s.File == nil || s.Artifact == nil {
		return ErrNoFile
	}
	pub := Publication{
		UserID:     s.UserID,
		UploadedBy: meta.UploadedBy,
		RequestID:  meta.RequestID,
		FileName:   s.File.Name,
		FileType:   s.File.ContentType,
		FileSize:   int64(len(s.File.Data)),
		Artifact:   *s.Artifact,
		Records:    s.Clone().Extracted,
	}
	if err := c.Publisher.Publish(ctx, pub); err != nil {
		metrics.IncWorkflowError("publish", "persist")
		telemetry.Error("workflow.publish_failed", map[string]any{
			"user_id": s.UserID,
			"path":    s.Artifact.Path,
			"error":   err,
		})
		return err
	}
	telemetry.Info("workflow.published", map[string]any{
		"user_id":  s.UserID,
		"path":     pub.Artifact.Path,
		"insights": len(pub.Records),
	})
	metrics.ObserveTransition(StagePublish.String(), "done")
	s.reset()
	return nil
}

func (c *Controller) moveTo(s *Session, next Stage) {
	from := s.Stage
	s.Stage = next
	metrics.ObserveTransition(from.String(), next.String())
	telemetry.Info("workflow.transition", map[string]any{
		"user_id": s.UserID,
		"from":    from.String(),
		"to":      next.String(),
	})
}

func expect(s *Session, op string, allowed ...Stage) error {
	if !s.InWorkflow {
		return &InvalidTransitionError{Op: op, Stage: s.Stage, InWorkflow: false}
	}
	for _, st := range allowed {
		if s.Stage == st {
			return nil
		}
	}
	metrics.IncWorkflowError(op, "invalid_transition")
	return &InvalidTransitionError{Op: op, Stage: s.Stage, InWorkflow: true}
}
