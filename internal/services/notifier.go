package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/observability"
	"github.com/yungbote/neurobridge-courseview/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-courseview/internal/realtime"
)

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelError   NotificationLevel = "error"
)

const (
	MsgChapterCompleted   = "Chapter marked as completed"
	MsgChapterIncomplete  = "Chapter marked as incomplete"
	MsgCourseNotFound     = "Course not found"
	MsgSyllabusFailed     = "Failed to generate syllabus. Please try again."
	MsgCourseCreated      = "Course created"
	MsgProviderKeyMissing = "OpenAI API key is not set. Please enter your API key in settings."
)

// Notifier emits user-facing messages and content events on the course's
// channel. A nil course id targets the global channel.
type Notifier interface {
	Success(ctx context.Context, courseID uuid.UUID, message string)
	Info(ctx context.Context, courseID uuid.UUID, message string)
	Error(ctx context.Context, courseID uuid.UUID, message string)

	ContentResolved(ctx context.Context, courseID, chapterID uuid.UUID)
	ContentFailed(ctx context.Context, courseID, chapterID uuid.UUID, message string)
	CompletionChanged(ctx context.Context, courseID, chapterID uuid.UUID, completed bool, progress int)
	CourseCreated(ctx context.Context, course *types.Course)
}

type notifier struct {
	emit SSEEmitter
}

func NewNotifier(emit SSEEmitter) Notifier {
	return &notifier{emit: emit}
}

func channelFor(courseID uuid.UUID) string {
	if courseID == uuid.Nil {
		return realtime.GlobalChannel
	}
	return realtime.CourseChannel(courseID)
}

func (n *notifier) send(ctx context.Context, kind string, msg realtime.SSEMessage) {
	if n == nil || n.emit == nil {
		return
	}
	observability.Current().IncNotification(kind)
	n.emit.Emit(ctxutil.Default(ctx), msg)
}

func (n *notifier) toast(ctx context.Context, level NotificationLevel, courseID uuid.UUID, message string) {
	n.send(ctx, string(level), realtime.SSEMessage{
		Channel: channelFor(courseID),
		Event:   realtime.SSEEventNotification,
		Data: map[string]any{
			"level":   string(level),
			"message": message,
		},
	})
}

func (n *notifier) Success(ctx context.Context, courseID uuid.UUID, message string) {
	n.toast(ctx, LevelSuccess, courseID, message)
}

func (n *notifier) Info(ctx context.Context, courseID uuid.UUID, message string) {
	n.toast(ctx, LevelInfo, courseID, message)
}

func (n *notifier) Error(ctx context.Context, courseID uuid.UUID, message string) {
	n.toast(ctx, LevelError, courseID, message)
}

func (n *notifier) ContentResolved(ctx context.Context, courseID, chapterID uuid.UUID) {
	n.send(ctx, "content_resolved", realtime.SSEMessage{
		Channel: channelFor(courseID),
		Event:   realtime.SSEEventChapterContentResolved,
		Data: map[string]any{
			"course_id":  courseID,
			"chapter_id": chapterID,
		},
	})
}

func (n *notifier) ContentFailed(ctx context.Context, courseID, chapterID uuid.UUID, message string) {
	n.send(ctx, "content_failed", realtime.SSEMessage{
		Channel: channelFor(courseID),
		Event:   realtime.SSEEventChapterContentFailed,
		Data: map[string]any{
			"course_id":  courseID,
			"chapter_id": chapterID,
			"level":      string(LevelError),
			"message":    message,
		},
	})
}

func (n *notifier) CompletionChanged(ctx context.Context, courseID, chapterID uuid.UUID, completed bool, progress int) {
	n.send(ctx, "completion_changed", realtime.SSEMessage{
		Channel: channelFor(courseID),
		Event:   realtime.SSEEventChapterCompletion,
		Data: map[string]any{
			"course_id":  courseID,
			"chapter_id": chapterID,
			"completed":  completed,
			"progress":   progress,
		},
	})
}

func (n *notifier) CourseCreated(ctx context.Context, course *types.Course) {
	if course == nil {
		return
	}
	n.send(ctx, "course_created", realtime.SSEMessage{
		Channel: realtime.GlobalChannel,
		Event:   realtime.SSEEventCourseCreated,
		Data: map[string]any{
			"course_id": course.ID,
			"title":     course.Title,
		},
	})
}
