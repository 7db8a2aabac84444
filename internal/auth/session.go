package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	sharedauth "insights-backend/internal/shared/auth"
	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
	"insights-backend/internal/shared/telemetry"
)

// ErrNoToken means the caller has no revocable session token.
var ErrNoToken = errors.New("no session token")

// ExitGuard reports whether a user has workflow state that sign-out would orphan.
type ExitGuard interface {
	Guarded(ctx context.Context, userID string) (bool, error)
}

// SessionService signs users out by revoking their token id.
type SessionService struct {
	Revocations *sharedauth.RevocationList
}

// SignOut revokes jti until exp.
func (s *SessionService) SignOut(ctx context.Context, jti string, exp time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if jti == "" {
		return ErrNoToken
	}
	s.Revocations.Revoke(jti, exp)
	telemetry.Info("auth.signout", map[string]any{"token_id": jti})
	return nil
}

// SessionHandler exposes sign-out and auth status.
type SessionHandler struct {
	Svc *SessionService
	// Guard is optional. When set, direct sign-out is refused while the
	// workflow exit guard is active; clients go through the workflow exit instead.
	Guard ExitGuard
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(svc *SessionService, guard ExitGuard) *SessionHandler {
	return &SessionHandler{Svc: svc, Guard: guard}
}

func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/status", h.status)
	rg.POST("/auth/signout", middleware.RequireUser(), h.signOut)
}

func (h *SessionHandler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	authenticated := userID != "" && !middleware.IsGuest(c)
	body := gin.H{
		"authenticated": authenticated,
		"guest":         middleware.IsGuest(c),
	}
	if authenticated {
		body["user"] = gin.H{
			"id":      userID,
			"email":   middleware.UserEmailFromContext(c),
			"name":    middleware.UserNameFromContext(c),
			"picture": middleware.UserPictureFromContext(c),
		}
	}
	respond.OK(c, body)
}

func (h *SessionHandler) signOut(c *gin.Context) {
	ctx := c.Request.Context()
	if h.Guard != nil {
		guarded, err := h.Guard.Guarded(ctx, middleware.UserIDFromContext(c))
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check workflow", nil)
			return
		}
		if guarded {
			respond.Error(c, http.StatusConflict, "exit_guarded", "an upload is in progress; confirm leaving the workflow first", nil)
			return
		}
	}

	jti, exp := middleware.TokenFromContext(c)
	if err := h.Svc.SignOut(ctx, jti, exp); err != nil {
		if errors.Is(err, ErrNoToken) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "no session token to revoke", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "sign_out_failed", "sign out failed", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
