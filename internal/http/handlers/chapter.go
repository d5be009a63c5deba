package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-courseview/internal/http/response"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

type ChapterHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewChapterHandler(log *logger.Logger, courseService services.CourseService) *ChapterHandler {
	return &ChapterHandler{
		log:           log.With("handler", "ChapterHandler"),
		courseService: courseService,
	}
}

type resolveResponse struct {
	CourseID    string         `json:"course_id"`
	ChapterID   string         `json:"chapter_id"`
	Content     string         `json:"content"`
	ContentHTML string         `json:"content_html"`
	Source      content.Source `json:"source"`
	Persisted   bool           `json:"persisted"`
	Error       string         `json:"error,omitempty"`
}

// POST /api/courses/:id/chapters/:chapter_id/resolve
func (h *ChapterHandler) ResolveContent(c *gin.Context) {
	courseID, perr := parseID(c.Param("id"), "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	chapterID, perr := parseID(c.Param("chapter_id"), "invalid_chapter_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_chapter_id")
		return
	}

	res, err := h.courseService.ResolveChapterContent(c.Request.Context(), courseID, chapterID)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "resolve_content_failed"), "resolve_content_failed")
		return
	}
	out := resolveResponse{
		CourseID:    res.CourseID.String(),
		ChapterID:   res.ChapterID.String(),
		Content:     res.Content,
		ContentHTML: content.RenderHTML(res.Content),
		Source:      res.Source,
		Persisted:   res.Persisted,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	response.RespondOK(c, out)
}

// PUT /api/courses/:id/chapters/:chapter_id/completion
func (h *ChapterHandler) SetCompletion(c *gin.Context) {
	courseID, perr := parseID(c.Param("id"), "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	chapterID, perr := parseID(c.Param("chapter_id"), "invalid_chapter_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_chapter_id")
		return
	}
	var req struct {
		Completed *bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingField("completed", err))
		return
	}

	course, err := h.courseService.SetChapterCompletion(c.Request.Context(), courseID, chapterID, *req.Completed)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "set_completion_failed"), "set_completion_failed")
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}
