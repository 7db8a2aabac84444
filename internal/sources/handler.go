package sources

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
)

// Handler serves upload history.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sources", middleware.RequireUser(), h.list)
}

type sourceResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
	Insights   int       `json:"insights"`
	Status     string    `json:"status"`
	Path       string    `json:"path"`
}

// list returns everyone's uploads unless mine=true.
func (h *Handler) list(c *gin.Context) {
	limit, offset := respond.PageParams(c, 20, 50)
	userID := ""
	if c.Query("mine") == "true" {
		userID = middleware.UserIDFromContext(c)
	}

	srcs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list sources", nil)
		return
	}

	out := make([]sourceResponse, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, sourceResponse{
			ID:         s.ID,
			FileName:   s.FileName,
			UploadedBy: s.UploadedBy,
			UploadedAt: s.CreatedAt,
			Insights:   s.InsightCount,
			Status:     s.Status,
			Path:       s.StoragePath,
		})
	}
	respond.List(c, out, limit, offset)
}
