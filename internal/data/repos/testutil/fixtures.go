package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/domain/learning"
)

// ResolvedText is chapter content long enough to count as resolved under the default threshold.
var ResolvedText = strings.Repeat("Resolved chapter body. ", 10)

// SeedChapter describes one chapter for SeedCourse.
type SeedChapter struct {
	Title     string
	Content   string
	Completed bool
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, chapters ...SeedChapter) *types.Course {
	tb.Helper()
	now := time.Now().UTC().Add(-time.Hour)
	c := &types.Course{
		ID:        uuid.New(),
		Title:     title,
		Metadata:  datatypes.JSON([]byte("{}")),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, ch := range chapters {
		c.Chapters = append(c.Chapters, types.Chapter{
			ID:        uuid.New(),
			CourseID:  c.ID,
			Position:  i,
			Title:     ch.Title,
			Content:   ch.Content,
			Completed: ch.Completed,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	c.Progress = learning.ComputeProgress(c.Chapters)
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}
