package sources

import "context"

// Repo persists upload history.
type Repo interface {
	Create(ctx context.Context, src Source) error
	// List returns sources newest first. An empty userID lists every user's uploads.
	List(ctx context.Context, userID string, limit, offset int) ([]Source, error)
}
