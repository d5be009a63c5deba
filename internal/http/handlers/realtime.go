package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-courseview/internal/http/response"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// GET /api/sse/stream?course_id=...
//
// Every stream receives the global channel; course_id adds that course's channel.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	channels := []string{realtime.GlobalChannel}
	if raw := strings.TrimSpace(c.Query("course_id")); raw != "" {
		courseID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
			return
		}
		channels = append(channels, realtime.CourseChannel(courseID))
	}

	client := h.hub.NewSSEClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Debug("SSEStream open", "client_id", client.ID.String(), "channels", channels)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSEStream closed", "client_id", client.ID.String())
}
