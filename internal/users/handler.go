package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me describes the caller from the token, adding the stored profile for
// members who signed in through this deployment.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"userId":  userID,
		"isGuest": middleware.IsGuest(c),
	}
	if email := middleware.UserEmailFromContext(c); email != "" {
		response["email"] = email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		response["name"] = name
	}
	if picture := middleware.UserPictureFromContext(c); picture != "" {
		response["picture"] = picture
	}
	if middleware.IsGuest(c) {
		respond.OK(c, response)
		return
	}

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	switch {
	case err == nil:
		response["memberSince"] = user.CreatedAt
		response["lastSignInAt"] = user.LastSignInAt
	case errors.Is(err, ErrNotFound):
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, response)
}
