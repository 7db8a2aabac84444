package insights

import "context"

// Repo persists insight records. Listings keep creation order.
type Repo interface {
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, match Matcher) ([]Record, error)
	ListChildren(ctx context.Context, parentID string) ([]Record, error)
	Save(ctx context.Context, rec Record) error
	// Update replaces an existing record only while its stored version is
	// still expectedVersion; otherwise it returns ErrVersionConflict.
	Update(ctx context.Context, rec Record, expectedVersion int) error
}
