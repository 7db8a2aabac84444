package library

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory Repo used in dev and tests.
type MemoryRepo struct {
	mu       sync.Mutex
	saved    map[string]map[string]SavedInsight
	searches map[string][]RecentSearch
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		saved:    make(map[string]map[string]SavedInsight),
		searches: make(map[string][]RecentSearch),
	}
}

func (r *MemoryRepo) Save(ctx context.Context, s SavedInsight) (SavedInsight, error) {
	if err := ctx.Err(); err != nil {
		return SavedInsight{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byInsight, ok := r.saved[s.UserID]
	if !ok {
		byInsight = make(map[string]SavedInsight)
		r.saved[s.UserID] = byInsight
	}
	if existing, ok := byInsight[s.InsightID]; ok {
		return existing, nil
	}
	byInsight[s.InsightID] = s
	return s, nil
}

func (r *MemoryRepo) Unsave(ctx context.Context, userID, insightID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved[userID], insightID)
	return nil
}

func (r *MemoryRepo) ListSaved(ctx context.Context, userID string) ([]SavedInsight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := make([]SavedInsight, 0, len(r.saved[userID]))
	for _, s := range r.saved[userID] {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].InsightID < out[j].InsightID
	})
	return out, nil
}

func (r *MemoryRepo) RecordSearch(ctx context.Context, s RecentSearch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.searches[s.UserID]
	next := make([]RecentSearch, 0, len(prev)+1)
	next = append(next, s)
	for _, old := range prev {
		if !strings.EqualFold(old.Query, s.Query) {
			next = append(next, old)
		}
	}
	if len(next) > MaxRecentSearches {
		next = next[:MaxRecentSearches]
	}
	r.searches[s.UserID] = next
	return nil
}

func (r *MemoryRepo) RecentSearches(ctx context.Context, userID string, limit int) ([]RecentSearch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.searches[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]RecentSearch, limit)
	copy(out, list[:limit])
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
