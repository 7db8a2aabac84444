package library

import "context"

// Repo persists saved insights and search history.
type Repo interface {
	// Save bookmarks an insight. Saving twice keeps the first SavedAt, which
	// is returned.
	Save(ctx context.Context, s SavedInsight) (SavedInsight, error)
	// Unsave removes a bookmark. Removing a missing bookmark is not an error.
	Unsave(ctx context.Context, userID, insightID string) error
	// ListSaved returns a user's bookmarks newest first.
	ListSaved(ctx context.Context, userID string) ([]SavedInsight, error)

	// RecordSearch adds s to the top of the user's history and drops entries
	// past MaxRecentSearches.
	RecordSearch(ctx context.Context, s RecentSearch) error
	// RecentSearches returns up to limit searches newest first.
	RecentSearches(ctx context.Context, userID string, limit int) ([]RecentSearch, error)
}
