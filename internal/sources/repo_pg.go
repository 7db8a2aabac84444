package sources

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, src Source) error {
	const query = `
INSERT INTO sources (
    id,
    user_id,
    uploaded_by,
    file_name,
    content_type,
    size_bytes,
    storage_path,
    insight_count,
    status,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	status := src.Status
	if status == "" {
		status = StatusProcessed
	}
	_, err := r.DB.ExecContext(ctx, query,
		src.ID,
		src.UserID,
		src.UploadedBy,
		src.FileName,
		src.ContentType,
		src.SizeBytes,
		src.StoragePath,
		src.InsightCount,
		status,
		src.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "insert source id=%s", src.ID)
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context, userID string, limit, offset int) ([]Source, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, uploaded_by, file_name, content_type, size_bytes, storage_path, insight_count, status, created_at
FROM sources
WHERE ($1 = '' OR user_id = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "list sources")
	}
	defer rows.Close()

	out := []Source{}
	for rows.Next() {
		var s Source
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.UploadedBy,
			&s.FileName,
			&s.ContentType,
			&s.SizeBytes,
			&s.StoragePath,
			&s.InsightCount,
			&s.Status,
			&s.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "scan source")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate sources")
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
