package insights

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres. The full record lives in a JSONB
// body; the indexed columns mirror the fields used for lookups.
type PGRepo struct {
	DB *sql.DB
}

const selectBody = `SELECT body FROM insights`

func (r *PGRepo) Get(ctx context.Context, id string) (Record, error) {
	row := r.DB.QueryRowContext(ctx, selectBody+` WHERE id = $1`, id)
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, eris.Wrapf(err, "get insight %s", id)
	}
	return decodeBody(body)
}

// List scans every record and applies match in process.
func (r *PGRepo) List(ctx context.Context, match Matcher) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, selectBody+` ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "list insights")
	}
	return scanRecords(rows, match)
}

func (r *PGRepo) ListChildren(ctx context.Context, parentID string) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, selectBody+` WHERE parent_id = $1 ORDER BY created_at, id`, parentID)
	if err != nil {
		return nil, eris.Wrapf(err, "list children of %s", parentID)
	}
	return scanRecords(rows, nil)
}

func (r *PGRepo) Save(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO insights (
    id,
    parent_id,
    approval_status,
    status,
    team,
    domain,
    confidence,
    current_version,
    body,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    approval_status = EXCLUDED.approval_status,
    status = EXCLUDED.status,
    team = EXCLUDED.team,
    domain = EXCLUDED.domain,
    confidence = EXCLUDED.confidence,
    current_version = EXCLUDED.current_version,
    body = EXCLUDED.body,
    updated_at = EXCLUDED.updated_at`

	rec.ChildIDs = nil
	body, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "encode insight %s", rec.ID)
	}
	var parent sql.NullString
	if p := rec.ParentID(); p != "" {
		parent = sql.NullString{String: p, Valid: true}
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		parent,
		string(rec.ApprovalStatus),
		string(rec.Status),
		rec.Team,
		rec.Domain,
		rec.Confidence,
		rec.CurrentVersion,
		body,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "save insight %s", rec.ID)
	}
	return nil
}

// Update is a compare-and-swap on current_version.
func (r *PGRepo) Update(ctx context.Context, rec Record, expectedVersion int) error {
	const query = `
UPDATE insights SET
    approval_status = $2,
    status = $3,
    team = $4,
    domain = $5,
    confidence = $6,
    current_version = $7,
    body = $8,
    updated_at = $9
WHERE id = $1 AND current_version = $10`

	rec.ChildIDs = nil
	body, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "encode insight %s", rec.ID)
	}
	res, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		string(rec.ApprovalStatus),
		string(rec.Status),
		rec.Team,
		rec.Domain,
		rec.Confidence,
		rec.CurrentVersion,
		body,
		rec.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return eris.Wrapf(err, "update insight %s", rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "update insight %s: rows affected", rec.ID)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM insights WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
		return eris.Wrapf(err, "check insight %s", rec.ID)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func scanRecords(rows *sql.Rows, match Matcher) ([]Record, error) {
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "scan insight")
		}
		rec, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		if match == nil || match(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate insights")
	}
	return out, nil
}

func decodeBody(body []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, eris.Wrap(err, "decode insight body")
	}
	rec.ChildIDs = nil
	return rec, nil
}
