package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"insights-backend/internal/insights"
	"insights-backend/internal/shared/storage/object"
	"insights-backend/internal/shared/telemetry"
)

// SidecarSuffix is appended to an artifact path for its extracted text.
const SidecarSuffix = ".extracted.txt"

// Source identifies an uploaded artifact to extract from.
type Source struct {
	Path        string
	URL         string
	ContentType string
	FileName    string
}

// Pipeline turns an uploaded document into insight records. Structuring is
// not implemented yet: the text is extracted and kept next to the artifact
// and no records are produced.
type Pipeline struct {
	Store object.ObjectStore
}

// ExtractInsights reads the artifact, stores its text sidecar and returns the
// structured records. Text extraction is best-effort; only cancellation and
// unreadable artifacts fail the call.
func (p *Pipeline) ExtractInsights(ctx context.Context, src Source) ([]insights.Record, error) {
	text, err := p.Text(ctx, src)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, object.ErrNotFound):
		return nil, err
	default:
		telemetry.Warn("extract.text_skipped", map[string]any{
			"path":         src.Path,
			"content_type": src.ContentType,
			"error":        err,
		})
		return []insights.Record{}, nil
	}
	telemetry.Info("extract.text_stored", map[string]any{
		"path":  src.Path,
		"chars": len(text),
	})
	return []insights.Record{}, nil
}

// Text extracts the artifact's text and stores it as a sidecar object.
func (p *Pipeline) Text(ctx context.Context, src Source) (string, error) {
	body, err := p.Store.Open(ctx, src.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact %s: %w", src.Path, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read artifact %s: %w", src.Path, err)
	}
	text, err := TextFromBytes(ctx, raw, src.ContentType, src.FileName)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", src.Path, err)
	}
	if _, err := p.Store.SaveWithKey(ctx, src.Path+SidecarSuffix, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("store sidecar for %s: %w", src.Path, err)
	}
	return text, nil
}
