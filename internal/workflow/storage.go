package workflow

import (
	"bytes"
	"context"
	"errors"

	"insights-backend/internal/extract"
	"insights-backend/internal/insights"
	"insights-backend/internal/shared/storage/object"
	"insights-backend/internal/shared/telemetry"
)

// DefaultUploadPrefix is where workflow artifacts are stored.
const DefaultUploadPrefix = "uploads/extraction"

// Storage uploads and removes workflow artifacts.
type Storage interface {
	Upload(ctx context.Context, f File) (Artifact, error)
	// Delete removes the artifact at path and anything derived from it. A
	// missing artifact is not an error.
	Delete(ctx context.Context, path string) error
}

// Extractor turns an uploaded artifact into insight records.
type Extractor interface {
	ExtractInsights(ctx context.Context, src extract.Source) ([]insights.Record, error)
}

// Publication is everything needed to persist a finished workflow.
type Publication struct {
	UserID     string
	UploadedBy string
	RequestID  string
	FileName   string
	FileType   string
	FileSize   int64
	Artifact   Artifact
	Records    []insights.Record
}

// Publisher persists a finished workflow.
type Publisher interface {
	Publish(ctx context.Context, p Publication) error
}

// ObjectStorage adapts an object store to Storage.
type ObjectStorage struct {
	Store  object.ObjectStore
	Prefix string
}

// Upload stores f under the upload prefix and resolves its URL.
func (s ObjectStorage) Upload(ctx context.Context, f File) (Artifact, error) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultUploadPrefix
	}
	obj, err := s.Store.Save(ctx, prefix, f.Name, f.ContentType, bytes.NewReader(f.Data))
	if err != nil {
		return Artifact{}, err
	}
	url, err := s.Store.URL(ctx, obj.Key)
	if err != nil {
		if delErr := s.Store.Delete(ctx, obj.Key); delErr != nil {
			telemetry.Warn("workflow.artifact.orphaned", map[string]any{
				"path":  obj.Key,
				"error": delErr,
			})
		}
		return Artifact{}, err
	}
	return Artifact{Path: obj.Key, URL: url, ContentType: obj.ContentType, Size: obj.Size}, nil
}

// Delete removes the extracted text sidecar before the artifact itself, so a
// failed delete always leaves the artifact behind for the next attempt.
func (s ObjectStorage) Delete(ctx context.Context, path string) error {
	for _, key := range []string{path + extract.SidecarSuffix, path} {
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
			return err
		}
	}
	return nil
}
