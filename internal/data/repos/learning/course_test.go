package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-courseview/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-courseview/internal/domain"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	c := &types.Course{
		Title:    "course",
		Metadata: datatypes.JSON([]byte("{}")),
		Chapters: []types.Chapter{
			{Position: 1, Title: "second"},
			{Position: 0, Title: "first"},
		},
	}
	if _, err := repo.Create(ctx, tx, []*types.Course{c}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned on create")
	}

	got, err := repo.GetWithChapters(ctx, tx, c.ID)
	if err != nil || got == nil {
		t.Fatalf("GetWithChapters: got=%v err=%v", got, err)
	}
	if len(got.Chapters) != 2 || got.Chapters[0].Title != "first" || got.Chapters[1].Title != "second" {
		t.Fatalf("chapters not ordered by position: %+v", got.Chapters)
	}
	if missing, err := repo.GetWithChapters(ctx, tx, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetWithChapters(missing): got=%v err=%v", missing, err)
	}

	at := time.Now().UTC().Add(time.Minute)
	if err := repo.SetProgress(ctx, tx, c.ID, 50, at); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil || len(rows) != 1 || rows[0].Progress != 50 {
		t.Fatalf("GetByIDs after SetProgress: err=%v rows=%v", err, rows)
	}

	if ok, err := repo.UpdateFields(ctx, tx, uuid.New(), map[string]interface{}{"title": "x"}); err != nil || ok {
		t.Fatalf("UpdateFields(missing): ok=%v err=%v", ok, err)
	}

	if rows, err := repo.List(ctx, tx); err != nil || len(rows) != 1 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}

	if err := repo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{c.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after SoftDeleteByIDs GetByIDs: err=%v len=%d", err, len(rows))
	}

	c2 := testutil.SeedCourse(t, ctx, tx, "other", testutil.SeedChapter{Title: "a"})
	if err := repo.FullDeleteByIDs(ctx, tx, []uuid.UUID{c2.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{c2.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after FullDeleteByIDs GetByIDs: err=%v len=%d", err, len(rows))
	}
	var chapterCount int64
	if err := tx.Model(&types.Chapter{}).Where("course_id = ?", c2.ID).Count(&chapterCount).Error; err != nil || chapterCount != 0 {
		t.Fatalf("expected chapters removed: count=%d err=%v", chapterCount, err)
	}
}
