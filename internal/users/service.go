package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var errIdentityRequired = errors.New("user id and email are required")

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// RecordSignIn persists the identity from OAuth so uploads and approvals can
// be attributed after the token expires.
func (s *Service) RecordSignIn(ctx context.Context, user User) error {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errIdentityRequired
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	user.LastSignInAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}
