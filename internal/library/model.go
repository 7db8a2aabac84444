package library

import (
	"errors"
	"time"

	"insights-backend/internal/insights"
)

// MaxRecentSearches is how many searches are kept per user.
const MaxRecentSearches = 20

// maxQueryLen bounds a stored search query, in runes.
const maxQueryLen = 200

var ErrInvalidInput = errors.New("invalid input")

// SavedInsight bookmarks an insight for one user.
type SavedInsight struct {
	UserID    string
	InsightID string
	SavedAt   time.Time
}

// RecentSearch is one entry of a user's search history. Queries are unique
// per user, ignoring case; searching again moves the entry to the top.
type RecentSearch struct {
	UserID     string    `json:"-"`
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searchedAt"`
}

// SavedEntry is a saved insight resolved to its current record.
type SavedEntry struct {
	Insight insights.Record `json:"insight"`
	SavedAt time.Time       `json:"savedAt"`
}
