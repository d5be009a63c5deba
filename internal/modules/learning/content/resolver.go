package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/observability"
	"github.com/yungbote/neurobridge-courseview/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

const (
	DefaultResolutionThreshold = 100
	DefaultFallbackContent     = "Failed to load content. Please try again."
)

var (
	ErrNotFound        = errors.New("not found")
	ErrCourseNotFound  = fmt.Errorf("course %w", ErrNotFound)
	ErrChapterNotFound = fmt.Errorf("chapter %w", ErrNotFound)
	ErrEmptyGeneration = errors.New("generated content is empty")
)

type Config struct {
	// Content shorter than this many characters is a placeholder.
	ResolutionThreshold int
	// Shown when generation fails and the chapter has no prior content.
	FallbackContent string
}

func (c Config) withDefaults() Config {
	if c.ResolutionThreshold <= 0 {
		c.ResolutionThreshold = DefaultResolutionThreshold
	}
	if c.FallbackContent == "" {
		c.FallbackContent = DefaultFallbackContent
	}
	return c
}

type Source string

const (
	SourceCache     Source = "cache"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

type Request struct {
	CourseID  uuid.UUID
	ChapterID uuid.UUID
}

type Result struct {
	CourseID  uuid.UUID `json:"course_id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	// Persisted reports whether Content is what the store now holds.
	Persisted bool  `json:"persisted"`
	Err       error `json:"-"`
}

// ContentWrite is a keyed write of generated text into one chapter.
type ContentWrite struct {
	CourseID  uuid.UUID
	ChapterID uuid.UUID
	Content   string
	At        time.Time
	// The store re-checks the stored content against Threshold and keeps it
	// when it is already resolved.
	Threshold int
}

type Provider interface {
	GenerateContent(ctx context.Context, title, hint string) (string, error)
}

type Store interface {
	FindCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	// WriteChapterContent returns the content that is stored after the call and
	// whether this call wrote it.
	WriteChapterContent(ctx context.Context, w ContentWrite) (stored string, written bool, err error)
}

type Notifier interface {
	ContentResolved(ctx context.Context, courseID, chapterID uuid.UUID)
	ContentFailed(ctx context.Context, courseID, chapterID uuid.UUID, message string)
}

// Resolver implements the lazy chapter content flow: cached content is returned
// as is; placeholder content is generated once, written back by chapter
// identity, and replaced by a fallback when generation fails.
type Resolver struct {
	log      *logger.Logger
	cfg      Config
	store    Store
	provider Provider
	notifier Notifier
	group    singleflight.Group
	now      func() time.Time
}

func NewResolver(baseLog *logger.Logger, cfg Config, store Store, provider Provider, notifier Notifier) *Resolver {
	return &Resolver{
		log:      baseLog.With("service", "ContentResolver"),
		cfg:      cfg.withDefaults(),
		store:    store,
		provider: provider,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Resolver) Threshold() int { return r.cfg.ResolutionThreshold }

func (r *Resolver) FallbackContent() string { return r.cfg.FallbackContent }

// IsPlaceholder reports whether content still needs generation.
func (r *Resolver) IsPlaceholder(content string) bool {
	return IsPlaceholder(content, r.cfg.ResolutionThreshold)
}

func IsPlaceholder(content string, threshold int) bool {
	return utf8.RuneCountInString(content) < threshold
}

// Resolve returns displayable content for one chapter. The only errors returned
// are lookup failures (ErrNotFound and store read errors); generation and write
// failures are reported through Result.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	ctx, span := otel.Tracer("courseview/content").Start(ctx, "content.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("course.id", req.CourseID.String()),
		attribute.String("chapter.id", req.ChapterID.String()),
	)

	course, err := r.store.FindCourse(ctx, req.CourseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	chapter := course.Chapter(req.ChapterID)
	if chapter == nil {
		err := fmt.Errorf("%w: %s", ErrChapterNotFound, req.ChapterID)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	if !r.IsPlaceholder(chapter.Content) {
		res := Result{
			CourseID:  req.CourseID,
			ChapterID: req.ChapterID,
			Content:   chapter.Content,
			Source:    SourceCache,
			Persisted: true,
		}
		r.observe(span, res, start)
		return res, nil
	}

	// Concurrent resolves of one chapter share a single provider call, detached
	// from the caller's cancellation.
	snapshot := *chapter
	v, _, _ := r.group.Do(req.ChapterID.String(), func() (interface{}, error) {
		return r.generate(ctxutil.Detached(ctx), req.CourseID, snapshot), nil
	})
	res := v.(Result)
	r.observe(span, res, start)
	return res, nil
}

func (r *Resolver) generate(ctx context.Context, courseID uuid.UUID, chapter types.Chapter) Result {
	log := r.log.With("course_id", courseID.String(), "chapter_id", chapter.ID.String())

	text, err := r.provider.GenerateContent(ctx, chapter.Title, chapter.Content)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyGeneration
	}
	if err != nil {
		log.Warn("chapter content generation failed", "error", err)
		if r.notifier != nil {
			r.notifier.ContentFailed(ctx, courseID, chapter.ID, r.cfg.FallbackContent)
		}
		display := chapter.Content
		if display == "" {
			display = r.cfg.FallbackContent
		}
		return Result{
			CourseID:  courseID,
			ChapterID: chapter.ID,
			Content:   display,
			Source:    SourceFallback,
			Persisted: chapter.Content != "",
			Err:       err,
		}
	}

	stored, written, werr := r.store.WriteChapterContent(ctx, ContentWrite{
		CourseID:  courseID,
		ChapterID: chapter.ID,
		Content:   text,
		At:        r.now(),
		Threshold: r.cfg.ResolutionThreshold,
	})
	if werr != nil {
		log.Error("failed to cache generated chapter content", "error", werr)
		return Result{
			CourseID:  courseID,
			ChapterID: chapter.ID,
			Content:   text,
			Source:    SourceGenerated,
			Persisted: false,
		}
	}
	if !written {
		log.Debug("chapter resolved concurrently; keeping stored content")
		return Result{
			CourseID:  courseID,
			ChapterID: chapter.ID,
			Content:   stored,
			Source:    SourceCache,
			Persisted: true,
		}
	}

	if r.notifier != nil {
		r.notifier.ContentResolved(ctx, courseID, chapter.ID)
	}
	log.Info("chapter content generated", "chars", utf8.RuneCountInString(text))
	return Result{
		CourseID:  courseID,
		ChapterID: chapter.ID,
		Content:   text,
		Source:    SourceGenerated,
		Persisted: true,
	}
}

func (r *Resolver) observe(span trace.Span, res Result, start time.Time) {
	span.SetAttributes(
		attribute.String("content.source", string(res.Source)),
		attribute.Bool("content.persisted", res.Persisted),
	)
	observability.Current().ObserveContentResolution(string(res.Source), time.Since(start))
}
