package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-courseview/internal/http/response"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

// GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.List(c.Request.Context())
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "load_courses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courseService.CreateFromTopic(c.Request.Context(), req.Topic)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "create_course_failed"), "create_course_failed")
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, perr := parseID(c.Param("id"), "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	course, err := h.courseService.Get(c.Request.Context(), courseID)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "load_course_failed"), "load_course_failed")
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// PATCH /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	courseID, perr := parseID(c.Param("id"), "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	var req services.CourseUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courseService.Update(c.Request.Context(), courseID, req)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "update_course_failed"), "update_course_failed")
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID, perr := parseID(c.Param("id"), "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	if err := h.courseService.Delete(c.Request.Context(), courseID); err != nil {
		response.RespondAPIError(c, mapError(err, "delete_course_failed"), "delete_course_failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/courses/:id/export
func (h *CourseHandler) ExportCourse(c *gin.Context) {
	courseID, perr := parseID(c.Param("id"), "invalid_course_id")
	if perr != nil {
		response.RespondAPIError(c, perr, "invalid_course_id")
		return
	}
	export, err := h.courseService.Export(c.Request.Context(), courseID)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "export_course_failed"), "export_course_failed")
		return
	}
	body, err := json.Marshal(export)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "export_course_failed", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "course-"+courseID.String()+".json"))
	c.Header("Vary", "Accept-Encoding")
	if !acceptsBrotli(c.GetHeader("Accept-Encoding")) {
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	c.Header("Content-Encoding", "br")
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	bw := brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression)
	if _, err := bw.Write(body); err != nil {
		h.log.Warn("export write failed", "course_id", courseID, "error", err)
	}
	if err := bw.Close(); err != nil {
		h.log.Warn("export flush failed", "course_id", courseID, "error", err)
	}
}

// POST /api/courses/import
func (h *CourseHandler) ImportCourse(c *gin.Context) {
	var req services.CourseExport
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courseService.Import(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, mapError(err, "import_course_failed"), "import_course_failed")
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

func acceptsBrotli(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "br") {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0"
	}
	return false
}
