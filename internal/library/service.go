package library

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"insights-backend/internal/insights"
	"insights-backend/internal/shared/telemetry"
)

// InsightReader resolves the insights a library refers to.
type InsightReader interface {
	Get(ctx context.Context, id string) (insights.Record, error)
	SharedWith(ctx context.Context, principals ...string) ([]insights.Record, error)
}

// Service backs the My Library tabs: saved insights, insights shared with
// the user and recent searches.
type Service struct {
	Repo     Repo
	Insights InsightReader
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, reader InsightReader) *Service {
	return &Service{Repo: repo, Insights: reader}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Save bookmarks an existing insight for userID.
func (s *Service) Save(ctx context.Context, userID, insightID string) (SavedInsight, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(insightID) == "" {
		return SavedInsight{}, ErrInvalidInput
	}
	if _, err := s.Insights.Get(ctx, insightID); err != nil {
		return SavedInsight{}, err
	}
	return s.Repo.Save(ctx, SavedInsight{UserID: userID, InsightID: insightID, SavedAt: s.now()})
}

// Unsave removes a bookmark; it succeeds whether or not one existed.
func (s *Service) Unsave(ctx context.Context, userID, insightID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(insightID) == "" {
		return ErrInvalidInput
	}
	return s.Repo.Unsave(ctx, userID, insightID)
}

// Saved resolves the user's bookmarks newest first. Bookmarks of insights
// that no longer exist are skipped.
func (s *Service) Saved(ctx context.Context, userID string) ([]SavedEntry, error) {
	saved, err := s.Repo.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SavedEntry, 0, len(saved))
	for _, sv := range saved {
		rec, err := s.Insights.Get(ctx, sv.InsightID)
		if errors.Is(err, insights.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, SavedEntry{Insight: rec, SavedAt: sv.SavedAt})
	}
	return out, nil
}

// Shared lists insights shared with the user by id or email.
func (s *Service) Shared(ctx context.Context, userID, email string) ([]insights.Record, error) {
	return s.Insights.SharedWith(ctx, userID, email)
}

// RecordSearch adds query to the user's history. Blank queries are ignored
// and long ones truncated.
func (s *Service) RecordSearch(ctx context.Context, userID, query string) error {
	query = strings.Join(strings.Fields(query), " ")
	if userID == "" || query == "" {
		return nil
	}
	if utf8.RuneCountInString(query) > maxQueryLen {
		query = string([]rune(query)[:maxQueryLen])
	}
	err := s.Repo.RecordSearch(ctx, RecentSearch{UserID: userID, Query: query, SearchedAt: s.now()})
	if err == nil {
		telemetry.Info("library.search_recorded", map[string]any{"user_id": userID})
	}
	return err
}

// Searches returns up to limit recent searches newest first.
func (s *Service) Searches(ctx context.Context, userID string, limit int) ([]RecentSearch, error) {
	return s.Repo.RecentSearches(ctx, userID, limit)
}
