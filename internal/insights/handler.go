package insights

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
	"insights-backend/internal/shared/telemetry"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	dimensionPrefix = "dim."
)

// SearchRecorder keeps the search history of signed-in users.
type SearchRecorder interface {
	RecordSearch(ctx context.Context, userID, query string) error
}

// Handler wires HTTP handlers to the service. Searches is optional.
type Handler struct {
	Svc      *Service
	Searches SearchRecorder
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches insight routes. Reads are open to guests; writes
// need a signed-in user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/insights", h.library)
	rg.GET("/insights/search", h.search)
	rg.GET("/insights/highlights", h.highlights)
	rg.GET("/insights/:id", h.get)
	rg.GET("/insights/:id/children", h.children)

	write := rg.Group("", middleware.RequireUser())
	write.POST("/insights", h.create)
	write.POST("/insights/approval", h.approval)
	write.PATCH("/insights/:id", h.edit)
	write.PATCH("/insights/:id/compliance", h.compliance)
}

func (h *Handler) library(c *gin.Context) {
	f, ok := parseLibraryFilter(c)
	if !ok {
		return
	}
	recs, err := h.Svc.Library(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, offset := respond.PageParams(c, defaultPageSize, maxPageSize)
	respond.List(c, respond.Window(recs, limit, offset), limit, offset)
}

func (h *Handler) search(c *gin.Context) {
	f, ok := parseLibraryFilter(c)
	if !ok {
		return
	}
	recs, err := h.Svc.Search(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	h.recordSearch(c, f.Query)
	limit, offset := respond.PageParams(c, defaultPageSize, maxPageSize)
	respond.List(c, respond.Window(recs, limit, offset), limit, offset)
}

// recordSearch adds a signed-in user's query to their history. Failures are
// logged and do not fail the search.
func (h *Handler) recordSearch(c *gin.Context, query string) {
	userID := middleware.UserIDFromContext(c)
	if h.Searches == nil || userID == "" || middleware.IsGuest(c) || strings.TrimSpace(query) == "" {
		return
	}
	if err := h.Searches.RecordSearch(c.Request.Context(), userID, query); err != nil {
		telemetry.Warn("insights.search_history_failed", map[string]any{
			"user_id": userID,
			"error":   err,
		})
	}
}

func (h *Handler) highlights(c *gin.Context) {
	set, err := h.Svc.Highlights(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, set)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("insightId", id)
	rec, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) children(c *gin.Context) {
	id := c.Param("id")
	c.Set("insightId", id)
	recs, err := h.Svc.Children(c.Request.Context(), id, parseSelection(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.List(c, recs, 0, 0)
}

func (h *Handler) create(c *gin.Context) {
	var in ManualInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	rec, err := h.Svc.CreateManual(c.Request.Context(), actor(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("insightId", rec.ID)
	respond.JSON(c, http.StatusCreated, rec)
}

func (h *Handler) edit(c *gin.Context) {
	id := c.Param("id")
	c.Set("insightId", id)
	var in EditInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	rec, err := h.Svc.Edit(c.Request.Context(), id, actor(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) approval(c *gin.Context) {
	var in ApprovalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	recs, err := h.Svc.SetApproval(c.Request.Context(), actor(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.List(c, recs, 0, 0)
}

func (h *Handler) compliance(c *gin.Context) {
	id := c.Param("id")
	c.Set("insightId", id)
	var in ComplianceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	rec, err := h.Svc.SetCompliance(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, rec)
}

func parseLibraryFilter(c *gin.Context) (LibraryFilter, bool) {
	f := LibraryFilter{
		Team:           strings.TrimSpace(c.Query("team")),
		Domain:         strings.TrimSpace(c.Query("domain")),
		Confidence:     ConfidenceBand(strings.TrimSpace(c.Query("confidence"))),
		SourceType:     SourceType(strings.TrimSpace(c.Query("sourceType"))),
		ApprovalStatus: ApprovalStatus(strings.TrimSpace(c.Query("approvalStatus"))),
		Status:         PublishStatus(strings.TrimSpace(c.Query("status"))),
		Query:          c.Query("q"),
		Dimensions:     parseSelection(c),
	}
	switch {
	case active(string(f.Confidence)) && !f.Confidence.Valid():
		respond.Error(c, http.StatusBadRequest, "validation_error", "confidence must be high, medium or low", nil)
		return f, false
	case active(string(f.SourceType)) && !f.SourceType.Valid():
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown sourceType", nil)
		return f, false
	case active(string(f.ApprovalStatus)) && !f.ApprovalStatus.Valid():
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown approvalStatus", nil)
		return f, false
	case active(string(f.Status)) && !f.Status.Valid():
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown status", nil)
		return f, false
	}
	return f, true
}

// parseSelection reads dim.<name>=<value> query params.
func parseSelection(c *gin.Context) Selection {
	sel := ClearAll()
	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, dimensionPrefix) || len(values) == 0 {
			continue
		}
		sel = sel.With(strings.TrimPrefix(key, dimensionPrefix), values[0])
	}
	return sel
}

func actor(c *gin.Context) string {
	if email := middleware.UserEmailFromContext(c); email != "" {
		return email
	}
	return middleware.UserIDFromContext(c)
}

func writeError(c *gin.Context, err error) {
	var unknownDim *UnknownDimensionError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "insight not found", nil)
	case errors.As(err, &unknownDim):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), gin.H{"dimension": unknownDim.Dimension})
	case errors.As(err, &verrs):
		respond.Validation(c, err)
	case errors.Is(err, ErrVersionConflict):
		respond.Error(c, http.StatusConflict, "version_conflict", "insight was modified by another request; reload and retry", nil)
	case errors.Is(err, ErrNotRoot), errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "insight request failed", nil)
	}
}
