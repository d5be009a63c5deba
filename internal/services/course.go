package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
)

const ExportVersion = 1

// SyllabusGenerator turns a topic into an ordered list of placeholder chapters.
type SyllabusGenerator interface {
	GenerateSyllabus(ctx context.Context, topic string) ([]openai.SyllabusChapter, error)
	Model() string
}

type CourseService interface {
	List(ctx context.Context) ([]*types.Course, error)
	Get(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	CreateFromTopic(ctx context.Context, topic string) (*types.Course, error)
	Update(ctx context.Context, courseID uuid.UUID, update CourseUpdate) (*types.Course, error)
	Delete(ctx context.Context, courseID uuid.UUID) error
	SetChapterCompletion(ctx context.Context, courseID, chapterID uuid.UUID, completed bool) (*types.Course, error)
	ResolveChapterContent(ctx context.Context, courseID, chapterID uuid.UUID) (content.Result, error)
	Export(ctx context.Context, courseID uuid.UUID) (*CourseExport, error)
	Import(ctx context.Context, export CourseExport) (*types.Course, error)
}

type ExportChapter struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

type ExportCourse struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Topic       string          `json:"topic,omitempty"`
	Chapters    []ExportChapter `json:"chapters"`
}

// CourseExport is the portable form of a course, without ids or timestamps.
type CourseExport struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exported_at"`
	Course     ExportCourse `json:"course"`
}

type courseService struct {
	log      *logger.Logger
	store    CourseStore
	resolver *content.Resolver
	syllabus SyllabusGenerator
	notifier Notifier
	now      func() time.Time
}

func NewCourseService(baseLog *logger.Logger, store CourseStore, resolver *content.Resolver, syllabus SyllabusGenerator, notifier Notifier) CourseService {
	return &courseService{
		log:      baseLog.With("service", "CourseService"),
		store:    store,
		resolver: resolver,
		syllabus: syllabus,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *courseService) List(ctx context.Context) ([]*types.Course, error) {
	return s.store.ListCourses(ctx)
}

func (s *courseService) Get(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	return s.store.FindCourse(ctx, courseID)
}

func (s *courseService) CreateFromTopic(ctx context.Context, topic string) (*types.Course, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	if s.syllabus == nil {
		return nil, fmt.Errorf("syllabus generator not configured")
	}

	chapters, err := s.syllabus.GenerateSyllabus(ctx, topic)
	if err != nil {
		s.log.Warn("syllabus generation failed", "topic", topic, "error", err)
		msg := MsgSyllabusFailed
		if errors.Is(err, openai.ErrMissingAPIKey) {
			msg = MsgProviderKeyMissing
		}
		s.notifier.Error(ctx, uuid.Nil, msg)
		return nil, err
	}

	meta, _ := json.Marshal(map[string]any{
		"topic":        topic,
		"model":        s.syllabus.Model(),
		"generated_at": s.now().Format(time.RFC3339),
	})
	course := &types.Course{
		Title:    topic,
		Topic:    topic,
		Metadata: datatypes.JSON(meta),
	}
	for _, ch := range chapters {
		course.Chapters = append(course.Chapters, types.Chapter{Title: ch.Title, Content: ch.Content})
	}

	created, err := s.store.CreateCourse(ctx, course)
	if err != nil {
		return nil, err
	}
	s.log.Info("course created from topic", "course_id", created.ID, "chapters", len(created.Chapters))
	s.notifier.CourseCreated(ctx, created)
	s.notifier.Success(ctx, created.ID, MsgCourseCreated)
	return created, nil
}

func (s *courseService) Update(ctx context.Context, courseID uuid.UUID, update CourseUpdate) (*types.Course, error) {
	return s.store.UpdateCourse(ctx, courseID, update)
}

func (s *courseService) Delete(ctx context.Context, courseID uuid.UUID) error {
	if err := s.store.DeleteCourse(ctx, courseID); err != nil {
		return err
	}
	s.log.Info("course deleted", "course_id", courseID)
	return nil
}

func (s *courseService) SetChapterCompletion(ctx context.Context, courseID, chapterID uuid.UUID, completed bool) (*types.Course, error) {
	course, err := s.store.SetChapterCompletion(ctx, courseID, chapterID, completed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Warn("completion toggle skipped", "course_id", courseID, "chapter_id", chapterID, "error", err)
		}
		return nil, err
	}
	if completed {
		s.notifier.Success(ctx, courseID, MsgChapterCompleted)
	} else {
		s.notifier.Info(ctx, courseID, MsgChapterIncomplete)
	}
	s.notifier.CompletionChanged(ctx, courseID, chapterID, completed, course.Progress)
	return course, nil
}

func (s *courseService) ResolveChapterContent(ctx context.Context, courseID, chapterID uuid.UUID) (content.Result, error) {
	return s.resolver.Resolve(ctx, content.Request{CourseID: courseID, ChapterID: chapterID})
}

func (s *courseService) Export(ctx context.Context, courseID uuid.UUID) (*CourseExport, error) {
	course, err := s.store.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := &CourseExport{
		Version:    ExportVersion,
		ExportedAt: s.now(),
		Course: ExportCourse{
			Title:       course.Title,
			Description: course.Description,
			Topic:       course.Topic,
			Chapters:    make([]ExportChapter, 0, len(course.Chapters)),
		},
	}
	for _, ch := range course.Chapters {
		out.Course.Chapters = append(out.Course.Chapters, ExportChapter{
			Title:     ch.Title,
			Content:   ch.Content,
			Completed: ch.Completed,
		})
	}
	return out, nil
}

func (s *courseService) Import(ctx context.Context, export CourseExport) (*types.Course, error) {
	if export.Version != 0 && export.Version > ExportVersion {
		return nil, fmt.Errorf("%w: unsupported export version %d", ErrInvalidInput, export.Version)
	}
	title := strings.TrimSpace(export.Course.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: course title is required", ErrInvalidInput)
	}
	meta, _ := json.Marshal(map[string]any{
		"imported_at": s.now().Format(time.RFC3339),
	})
	course := &types.Course{
		Title:       title,
		Description: strings.TrimSpace(export.Course.Description),
		Topic:       strings.TrimSpace(export.Course.Topic),
		Metadata:    datatypes.JSON(meta),
	}
	for i, ch := range export.Course.Chapters {
		t := strings.TrimSpace(ch.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: chapter %d has no title", ErrInvalidInput, i)
		}
		course.Chapters = append(course.Chapters, types.Chapter{Title: t, Content: ch.Content, Completed: ch.Completed})
	}
	created, err := s.store.CreateCourse(ctx, course)
	if err != nil {
		return nil, err
	}
	s.notifier.CourseCreated(ctx, created)
	return created, nil
}
