package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-courseview/internal/http/response"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

// CourseViewer is the session API the view endpoints drive.
type CourseViewer interface {
	Open(ctx context.Context, courseID uuid.UUID) (services.ViewSnapshot, error)
	SelectChapter(ctx context.Context, sessionID, chapterID uuid.UUID) (services.ViewSnapshot, error)
	Snapshot(ctx context.Context, sessionID uuid.UUID) (services.ViewSnapshot, error)
	Close(sessionID uuid.UUID) bool
}

type ViewHandler struct {
	log   *logger.Logger
	views CourseViewer
}

func NewViewHandler(log *logger.Logger, views CourseViewer) *ViewHandler {
	return &ViewHandler{
		log:   log.With("handler", "ViewHandler"),
		views: views,
	}
}

// POST /api/views
func (h *ViewHandler) OpenView(c *gin.Context) {
	var req struct {
		CourseID string `json:"course_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	courseID, perr := parseID(req.CourseID, "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	snap, err := h.views.Open(c.Request.Context(), courseID)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "open_view_failed"), "open_view_failed")
		return
	}
	response.RespondCreated(c, gin.H{"view": snap})
}

// GET /api/views/:session_id
func (h *ViewHandler) GetView(c *gin.Context) {
	sessionID, perr := parseID(c.Param("session_id"), "invalid_session_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_session_id")
		return
	}
	snap, err := h.views.Snapshot(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "load_view_failed"), "load_view_failed")
		return
	}
	response.RespondOK(c, gin.H{"view": snap})
}

// POST /api/views/:session_id/select
func (h *ViewHandler) SelectChapter(c *gin.Context) {
	sessionID, perr := parseID(c.Param("session_id"), "invalid_session_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_session_id")
		return
	}
	var req struct {
		ChapterID string `json:"chapter_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	chapterID, perr := parseID(req.ChapterID, "invalid_chapter_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_chapter_id")
		return
	}
	snap, err := h.views.SelectChapter(c.Request.Context(), sessionID, chapterID)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "select_chapter_failed"), "select_chapter_failed")
		return
	}
	response.RespondOK(c, gin.H{"view": snap})
}

// DELETE /api/views/:session_id
func (h *ViewHandler) CloseView(c *gin.Context) {
	sessionID, perr := parseID(c.Param("session_id"), "invalid_session_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_session_id")
		return
	}
	if !h.views.Close(sessionID) {
		response.RespondAPIError(c, mapError(services.ErrSessionNotFound, "close_view_failed"), "close_view_failed")
		return
	}
	c.Status(http.StatusNoContent)
}
