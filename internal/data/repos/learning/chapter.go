package learning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

type ChapterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error)
	// GetByID returns nil, nil when the chapter does not belong to the course.
	GetByID(ctx context.Context, tx *gorm.DB, courseID, chapterID uuid.UUID) (*types.Chapter, error)
	UpdateContent(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, content string, at time.Time) error
	UpdateCompleted(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, completed bool, at time.Time) error
	DeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error
}

type chapterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
	repoLog := baseLog.With("repo", "ChapterRepo")
	return &chapterRepo{db: db, log: repoLog}
}

func (r *chapterRepo) Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(chapters) == 0 {
		return []*types.Chapter{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&chapters).Error; err != nil {
		return nil, err
	}
	return chapters, nil
}

func (r *chapterRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Chapter
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chapterRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID, chapterID uuid.UUID) (*types.Chapter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ch types.Chapter
	err := transaction.WithContext(ctx).
		Where("id = ? AND course_id = ?", chapterID, courseID).
		First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *chapterRepo) UpdateContent(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, content string, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Chapter{}).
		Where("id = ?", chapterID).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": at,
		}).Error
}

func (r *chapterRepo) UpdateCompleted(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, completed bool, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Chapter{}).
		Where("id = ?", chapterID).
		Updates(map[string]interface{}{
			"completed":  completed,
			"updated_at": at,
		}).Error
}

func (r *chapterRepo) DeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Delete(&types.Chapter{}).Error
}
