package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-courseview/internal/data/repos"
	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/domain/learning"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

var (
	ErrNotFound        = content.ErrNotFound
	ErrCourseNotFound  = content.ErrCourseNotFound
	ErrChapterNotFound = content.ErrChapterNotFound
	ErrInvalidInput    = errors.New("invalid input")
)

// ChapterInput is one chapter of a replacement chapter list. A nil ID creates a
// new chapter; a known ID keeps that chapter's identity.
type ChapterInput struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Completed bool       `json:"completed"`
}

// CourseUpdate is a partial update. Nil fields are left as they are; Chapters
// replaces the whole chapter list in the given order.
type CourseUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Chapters    *[]ChapterInput `json:"chapters,omitempty"`
}

// CourseStore is the persisted collection of courses. Every write runs in one
// transaction and keeps Course.Progress consistent with the chapter list.
type CourseStore interface {
	ListCourses(ctx context.Context) ([]*types.Course, error)
	FindCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	CreateCourse(ctx context.Context, course *types.Course) (*types.Course, error)
	UpdateCourse(ctx context.Context, courseID uuid.UUID, update CourseUpdate) (*types.Course, error)
	SetChapterCompletion(ctx context.Context, courseID, chapterID uuid.UUID, completed bool) (*types.Course, error)
	WriteChapterContent(ctx context.Context, w content.ContentWrite) (stored string, written bool, err error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error
}

type courseStore struct {
	db          *gorm.DB
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	chapterRepo repos.ChapterRepo
	now         func() time.Time
}

func NewCourseStore(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo, chapterRepo repos.ChapterRepo) CourseStore {
	return &courseStore{
		db:          db,
		log:         baseLog.With("service", "CourseStore"),
		courseRepo:  courseRepo,
		chapterRepo: chapterRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *courseStore) ListCourses(ctx context.Context) ([]*types.Course, error) {
	return s.courseRepo.List(ctx, nil)
}

func (s *courseStore) FindCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	return s.findCourse(ctx, nil, courseID)
}

func (s *courseStore) findCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	course, err := s.courseRepo.GetWithChapters(ctx, tx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}
	return course, nil
}

func (s *courseStore) requireCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	rows, err := s.courseRepo.GetByIDs(ctx, tx, []uuid.UUID{courseID})
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}
	return nil
}

func (s *courseStore) CreateCourse(ctx context.Context, course *types.Course) (*types.Course, error) {
	if course == nil {
		return nil, fmt.Errorf("course is required")
	}
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	for i := range course.Chapters {
		course.Chapters[i].CourseID = course.ID
		course.Chapters[i].Position = i
	}
	course.Progress = learning.ComputeProgress(course.Chapters)
	if _, err := s.courseRepo.Create(ctx, nil, []*types.Course{course}); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return s.FindCourse(ctx, course.ID)
}

func (s *courseStore) UpdateCourse(ctx context.Context, courseID uuid.UUID, update CourseUpdate) (*types.Course, error) {
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{"updated_at": now}
		if update.Title != nil {
			title := strings.TrimSpace(*update.Title)
			if title == "" {
				return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
			}
			fields["title"] = title
		}
		if update.Description != nil {
			fields["description"] = strings.TrimSpace(*update.Description)
		}

		if update.Chapters != nil {
			chapters, err := s.replaceChapters(ctx, tx, existing, *update.Chapters, now)
			if err != nil {
				return err
			}
			fields["progress"] = learning.ComputeProgress(chapters)
		}

		_, err = s.courseRepo.UpdateFields(ctx, tx, courseID, fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.FindCourse(ctx, courseID)
}

func (s *courseStore) replaceChapters(ctx context.Context, tx *gorm.DB, existing *types.Course, inputs []ChapterInput, now time.Time) ([]types.Chapter, error) {
	chapters := make([]types.Chapter, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for i, in := range inputs {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: chapter %d has no title", ErrInvalidInput, i)
		}
		ch := types.Chapter{
			ID:        uuid.New(),
			CourseID:  existing.ID,
			Position:  i,
			Title:     title,
			Content:   in.Content,
			Completed: in.Completed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if in.ID != nil && *in.ID != uuid.Nil {
			if seen[*in.ID] {
				return nil, fmt.Errorf("%w: duplicate chapter id %s", ErrInvalidInput, *in.ID)
			}
			prev := existing.Chapter(*in.ID)
			if prev == nil {
				return nil, fmt.Errorf("%w: chapter %s does not belong to course %s", ErrInvalidInput, *in.ID, existing.ID)
			}
			seen[*in.ID] = true
			ch.ID = *in.ID
			ch.CreatedAt = prev.CreatedAt
		}
		chapters = append(chapters, ch)
	}

	if err := s.chapterRepo.DeleteByCourseIDs(ctx, tx, []uuid.UUID{existing.ID}); err != nil {
		return nil, fmt.Errorf("clear chapters: %w", err)
	}
	ptrs := make([]*types.Chapter, len(chapters))
	for i := range chapters {
		ptrs[i] = &chapters[i]
	}
	if _, err := s.chapterRepo.Create(ctx, tx, ptrs); err != nil {
		return nil, fmt.Errorf("create chapters: %w", err)
	}
	return chapters, nil
}

func (s *courseStore) SetChapterCompletion(ctx context.Context, courseID, chapterID uuid.UUID, completed bool) (*types.Course, error) {
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		ch, err := s.chapterRepo.GetByID(ctx, tx, courseID, chapterID)
		if err != nil {
			return fmt.Errorf("load chapter: %w", err)
		}
		if ch == nil {
			return fmt.Errorf("%w: %s", ErrChapterNotFound, chapterID)
		}
		if err := s.chapterRepo.UpdateCompleted(ctx, tx, chapterID, completed, now); err != nil {
			return fmt.Errorf("update chapter completion: %w", err)
		}
		chapters, err := s.chapterRepo.GetByCourseID(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("load chapters: %w", err)
		}
		flat := make([]types.Chapter, len(chapters))
		for i, c := range chapters {
			flat[i] = *c
		}
		return s.courseRepo.SetProgress(ctx, tx, courseID, learning.ComputeProgress(flat), now)
	})
	if err != nil {
		return nil, err
	}
	return s.FindCourse(ctx, courseID)
}

func (s *courseStore) WriteChapterContent(ctx context.Context, w content.ContentWrite) (string, bool, error) {
	at := w.At
	if at.IsZero() {
		at = s.now()
	}
	var (
		stored  string
		written bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireCourse(ctx, tx, w.CourseID); err != nil {
			return err
		}
		ch, err := s.chapterRepo.GetByID(ctx, tx, w.CourseID, w.ChapterID)
		if err != nil {
			return fmt.Errorf("load chapter: %w", err)
		}
		if ch == nil {
			return fmt.Errorf("%w: %s", ErrChapterNotFound, w.ChapterID)
		}
		if w.Threshold > 0 && !content.IsPlaceholder(ch.Content, w.Threshold) {
			stored = ch.Content
			return nil
		}
		if err := s.chapterRepo.UpdateContent(ctx, tx, w.ChapterID, w.Content, at); err != nil {
			return fmt.Errorf("write chapter content: %w", err)
		}
		if err := s.courseRepo.Touch(ctx, tx, w.CourseID, at); err != nil {
			return fmt.Errorf("touch course: %w", err)
		}
		stored, written = w.Content, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if written {
		s.log.Debug("chapter content cached", "course_id", w.CourseID, "chapter_id", w.ChapterID)
	}
	return stored, written, nil
}

func (s *courseStore) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		return s.courseRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{courseID})
	})
}
