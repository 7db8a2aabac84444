package library

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Save(ctx context.Context, s SavedInsight) (SavedInsight, error) {
	const query = `
INSERT INTO saved_insights (user_id, insight_id, saved_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, insight_id) DO UPDATE SET saved_at = saved_insights.saved_at
RETURNING saved_at`

	if err := r.DB.QueryRowContext(ctx, query, s.UserID, s.InsightID, s.SavedAt).Scan(&s.SavedAt); err != nil {
		return SavedInsight{}, eris.Wrapf(err, "save insight %s for %s", s.InsightID, s.UserID)
	}
	return s, nil
}

func (r *PGRepo) Unsave(ctx context.Context, userID, insightID string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM saved_insights WHERE user_id = $1 AND insight_id = $2`, userID, insightID)
	if err != nil {
		return eris.Wrapf(err, "unsave insight %s for %s", insightID, userID)
	}
	return nil
}

func (r *PGRepo) ListSaved(ctx context.Context, userID string) ([]SavedInsight, error) {
	const query = `
SELECT user_id, insight_id, saved_at
FROM saved_insights
WHERE user_id = $1
ORDER BY saved_at DESC, insight_id`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, eris.Wrap(err, "list saved insights")
	}
	defer rows.Close()

	out := []SavedInsight{}
	for rows.Next() {
		var s SavedInsight
		if err := rows.Scan(&s.UserID, &s.InsightID, &s.SavedAt); err != nil {
			return nil, eris.Wrap(err, "scan saved insight")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate saved insights")
	}
	return out, nil
}

// RecordSearch upserts the query and trims the history in one transaction.
func (r *PGRepo) RecordSearch(ctx context.Context, s RecentSearch) (err error) {
	const upsert = `
INSERT INTO recent_searches (user_id, query_key, query, searched_at)
VALUES ($1, lower($2), $2, $3)
ON CONFLICT (user_id, query_key) DO UPDATE SET
    query = EXCLUDED.query,
    searched_at = EXCLUDED.searched_at`
	const trim = `
DELETE FROM recent_searches
WHERE user_id = $1 AND query_key NOT IN (
    SELECT query_key FROM recent_searches
    WHERE user_id = $1
    ORDER BY searched_at DESC
    LIMIT $2
)`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin record search")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, upsert, s.UserID, s.Query, s.SearchedAt); err != nil {
		return eris.Wrapf(err, "record search for %s", s.UserID)
	}
	if _, err = tx.ExecContext(ctx, trim, s.UserID, MaxRecentSearches); err != nil {
		return eris.Wrapf(err, "trim searches for %s", s.UserID)
	}
	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "commit record search")
	}
	return nil
}

func (r *PGRepo) RecentSearches(ctx context.Context, userID string, limit int) ([]RecentSearch, error) {
	if limit <= 0 || limit > MaxRecentSearches {
		limit = MaxRecentSearches
	}
	const query = `
SELECT user_id, query, searched_at
FROM recent_searches
WHERE user_id = $1
ORDER BY searched_at DESC
LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list recent searches")
	}
	defer rows.Close()

	out := []RecentSearch{}
	for rows.Next() {
		var s RecentSearch
		if err := rows.Scan(&s.UserID, &s.Query, &s.SearchedAt); err != nil {
			return nil, eris.Wrap(err, "scan recent search")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate recent searches")
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
