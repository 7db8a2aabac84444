package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, name, picture_url, created_at, last_sign_in_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  picture_url = EXCLUDED.picture_url,
  last_sign_in_at = EXCLUDED.last_sign_in_at`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.Name),
		nullableString(user.PictureURL),
		user.CreatedAt,
		user.LastSignInAt,
	)
	if err != nil {
		return eris.Wrapf(err, "upsert user id=%s", user.ID)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, name, picture_url, created_at, last_sign_in_at
FROM users
WHERE id = $1`
	var user User
	var name, pictureURL sql.NullString
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&name,
		&pictureURL,
		&user.CreatedAt,
		&user.LastSignInAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, eris.Wrapf(err, "get user id=%s", userID)
	}
	user.Name = name.String
	user.PictureURL = pictureURL.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
