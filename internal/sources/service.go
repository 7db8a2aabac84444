package sources

import (
	"context"
	"time"

	"github.com/google/uuid"

	"insights-backend/internal/insights"
	"insights-backend/internal/queue"
	"insights-backend/internal/shared/telemetry"
	"insights-backend/internal/workflow"
)

// InsightSaver stores extracted records.
type InsightSaver interface {
	SaveExtracted(ctx context.Context, recs []insights.Record, from insights.Provenance) ([]insights.Record, error)
}

// Service records published uploads and notifies downstream consumers.
type Service struct {
	Repo     Repo
	Insights InsightSaver
	// Queue is optional; without it no message is sent.
	Queue queue.Client
	Now   func() time.Time
	NewID func() string
}

// NewService constructs a Service.
func NewService(repo Repo, saver InsightSaver, q queue.Client) *Service {
	return &Service{Repo: repo, Insights: saver, Queue: q}
}

// Publish persists the workflow's records, then the upload history entry. A
// failed queue send is logged and does not fail the publish.
func (s *Service) Publish(ctx context.Context, p workflow.Publication) error {
	now := s.now()
	id := s.newID()

	saved, err := s.Insights.SaveExtracted(ctx, p.Records, insights.Provenance{
		SourceID: id,
		FileName: p.FileName,
		Author:   p.UploadedBy,
	})
	if err != nil {
		return err
	}

	src := Source{
		ID:           id,
		UserID:       p.UserID,
		UploadedBy:   p.UploadedBy,
		FileName:     p.FileName,
		ContentType:  p.FileType,
		SizeBytes:    p.FileSize,
		StoragePath:  p.Artifact.Path,
		InsightCount: len(saved),
		Status:       StatusProcessed,
		CreatedAt:    now,
	}
	if err := s.Repo.Create(ctx, src); err != nil {
		return err
	}

	if s.Queue != nil {
		ids := make([]string, 0, len(saved))
		for _, r := range saved {
			ids = append(ids, r.ID)
		}
		msg := queue.NewSourcePublished(id, p.UserID, p.Artifact.Path, p.RequestID, ids, now)
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Warn("sources.enqueue_failed", map[string]any{
				"source_id":  id,
				"request_id": p.RequestID,
				"error":      err,
			})
		}
	}

	telemetry.Info("sources.published", map[string]any{
		"source_id": id,
		"user_id":   p.UserID,
		"insights":  len(saved),
	})
	return nil
}

// List returns upload history newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Source, error) {
	return s.Repo.List(ctx, userID, limit, offset)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

var _ workflow.Publisher = (*Service)(nil)
