package workflow

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
)

// DefaultMaxUploadBytes caps the selected file size.
const DefaultMaxUploadBytes = 10 << 20

// SignOuter revokes the caller's session token.
type SignOuter interface {
	SignOut(ctx context.Context, jti string, exp time.Time) error
}

// Handler exposes the workflow and exit guard over HTTP.
type Handler struct {
	Ctrl           *Controller
	Store          *MemoryStore
	SignOut        SignOuter
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(ctrl *Controller, store *MemoryStore, signOut SignOuter, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Ctrl: ctrl, Store: store, SignOut: signOut, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches workflow routes. Guests cannot use the workflow.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	wf := rg.Group("/workflow", middleware.RequireUser())
	wf.GET("", h.get)
	wf.GET("/unload", h.unload)
	wf.POST("/enter", h.enter)
	wf.POST("/file", h.selectFile)
	wf.POST("/extraction", h.runExtraction)
	wf.POST("/advance", h.advance)
	wf.POST("/edit-again", h.editAgain)
	wf.POST("/publish", h.publish)
	wf.POST("/exit", h.requestExit)
	wf.POST("/exit/stay", h.stay)
	wf.POST("/exit/leave", h.leave)
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.Store.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("workflowStage", s.Stage.String())
	respond.OK(c, toView(s))
}

func (h *Handler) unload(c *gin.Context) {
	s, err := h.Store.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"warn": BeforeUnload(s)})
}

func (h *Handler) enter(c *gin.Context) {
	h.update(c, func(s *Session) error {
		h.Ctrl.Enter(s)
		return nil
	})
}

func (h *Handler) selectFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	file := File{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}
	h.update(c, func(s *Session) error {
		return h.Ctrl.SelectFile(s, file)
	})
}

func (h *Handler) runExtraction(c *gin.Context) {
	ctx := c.Request.Context()
	h.update(c, func(s *Session) error {
		return h.Ctrl.RunExtraction(ctx, s)
	})
}

func (h *Handler) advance(c *gin.Context) {
	h.update(c, h.Ctrl.Advance)
}

func (h *Handler) editAgain(c *gin.Context) {
	h.update(c, h.Ctrl.EditAgain)
}

func (h *Handler) publish(c *gin.Context) {
	ctx := c.Request.Context()
	meta := PublishMeta{
		UploadedBy: uploader(c),
		RequestID:  middleware.RequestIDFromContext(c),
	}
	h.update(c, func(s *Session) error {
		return h.Ctrl.Publish(ctx, s, meta)
	})
}

func (h *Handler) requestExit(c *gin.Context) {
	var req exitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "kind is required", nil)
		return
	}
	action := ExitAction{Kind: req.Kind, Target: req.Target}
	ctx := c.Request.Context()
	var res ExitResult
	h.exit(c, func(s *Session) error {
		var err error
		res, err = h.Ctrl.RequestExit(ctx, s, action, h.dispatcher(c))
		return err
	}, &res)
}

func (h *Handler) stay(c *gin.Context) {
	var res ExitResult
	h.exit(c, func(s *Session) error {
		h.Ctrl.Stay(s)
		return nil
	}, &res)
}

func (h *Handler) leave(c *gin.Context) {
	ctx := c.Request.Context()
	var res ExitResult
	h.exit(c, func(s *Session) error {
		var err error
		res, err = h.Ctrl.Leave(ctx, s, h.dispatcher(c))
		return err
	}, &res)
}

func (h *Handler) update(c *gin.Context, fn func(*Session) error) {
	s, err := h.Store.Update(c.Request.Context(), middleware.UserIDFromContext(c), fn)
	c.Set("workflowStage", s.Stage.String())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toView(s))
}

func (h *Handler) exit(c *gin.Context, fn func(*Session) error, res *ExitResult) {
	s, err := h.Store.Update(c.Request.Context(), middleware.UserIDFromContext(c), fn)
	c.Set("workflowStage", s.Stage.String())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, exitView{Session: toView(s), Dispatched: res.Dispatched, Prompt: res.Prompt})
}

// dispatcher signs the caller out server side. Other exit kinds are handed
// back to the client, which performs the navigation.
func (h *Handler) dispatcher(c *gin.Context) Dispatcher {
	return DispatchFunc(func(ctx context.Context, a ExitAction) error {
		if a.Kind != ExitSignOut || h.SignOut == nil {
			return nil
		}
		jti, exp := middleware.TokenFromContext(c)
		return h.SignOut.SignOut(ctx, jti, exp)
	})
}

func uploader(c *gin.Context) string {
	if email := middleware.UserEmailFromContext(c); email != "" {
		return email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		return name
	}
	return middleware.UserIDFromContext(c)
}

func writeError(c *gin.Context, err error) {
	var transition *InvalidTransitionError
	var writeErr *StorageWriteError
	var deleteErr *StorageDeleteError
	var dispatchErr *DispatchError
	switch {
	case errors.As(err, &transition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), gin.H{
			"operation":  transition.Op,
			"stage":      transition.Stage.String(),
			"inWorkflow": transition.InWorkflow,
		})
	case errors.As(err, &writeErr):
		respond.Error(c, http.StatusBadGateway, "storage_write_failed", "upload failed, try again", nil)
	case errors.As(err, &deleteErr):
		respond.Error(c, http.StatusBadGateway, "storage_delete_failed", "could not remove uploaded file, try again", gin.H{"path": deleteErr.Path})
	case errors.As(err, &dispatchErr) && dispatchErr.Action.Kind == ExitSignOut:
		respond.Error(c, http.StatusBadGateway, "sign_out_failed", "sign out failed", nil)
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrEmptyFile), errors.Is(err, ErrInvalidExit):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusServiceUnavailable, "request_cancelled", "request cancelled", nil)
	default:
		respond.Error(c, http.StatusBadGateway, "workflow_failed", "workflow step failed", nil)
	}
}
