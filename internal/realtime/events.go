package realtime

import (
	"strings"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	// User-facing toasts.
	SSEEventNotification SSEEvent = "Notification"

	SSEEventChapterContentResolved SSEEvent = "ChapterContentResolved"
	SSEEventChapterContentFailed   SSEEvent = "ChapterContentFailed"
	SSEEventChapterCompletion      SSEEvent = "ChapterCompletionChanged"
	SSEEventCourseCreated          SSEEvent = "CourseCreated"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

const courseChannelPrefix = "course:"

// CourseChannel is the channel every viewer of courseID subscribes to.
func CourseChannel(courseID uuid.UUID) string {
	return courseChannelPrefix + courseID.String()
}

// GlobalChannel carries notifications that are not tied to an existing course,
// such as a failed syllabus generation.
const GlobalChannel = "global"

// ParseCourseChannel extracts the course id from a course channel name.
func ParseCourseChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, courseChannelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, courseChannelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
