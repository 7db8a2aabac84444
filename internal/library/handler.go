package library

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"insights-backend/internal/insights"
	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
)

// Handler serves the My Library tabs.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	user := rg.Group("", middleware.RequireUser())
	user.POST("/insights/:id/save", h.save)
	user.DELETE("/insights/:id/save", h.unsave)
	user.GET("/me/library/saved", h.saved)
	user.GET("/me/library/shared", h.shared)
	user.GET("/me/library/searches", h.searches)
}

type savedResponse struct {
	InsightID string    `json:"insightId"`
	SavedAt   time.Time `json:"savedAt"`
}

func (h *Handler) save(c *gin.Context) {
	sv, err := h.Svc.Save(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, savedResponse{InsightID: sv.InsightID, SavedAt: sv.SavedAt})
}

func (h *Handler) unsave(c *gin.Context) {
	if err := h.Svc.Unsave(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) saved(c *gin.Context) {
	limit, offset := respond.PageParams(c, 50, 200)
	entries, err := h.Svc.Saved(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.List(c, respond.Window(entries, limit, offset), limit, offset)
}

func (h *Handler) shared(c *gin.Context) {
	limit, offset := respond.PageParams(c, 50, 200)
	recs, err := h.Svc.Shared(c.Request.Context(),
		middleware.UserIDFromContext(c), middleware.UserEmailFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.List(c, respond.Window(recs, limit, offset), limit, offset)
}

func (h *Handler) searches(c *gin.Context) {
	limit, _ := respond.PageParams(c, 10, MaxRecentSearches)
	list, err := h.Svc.Searches(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.List(c, list, limit, 0)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, insights.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "insight not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "library request failed", nil)
	}
}
