package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Topic       string    `gorm:"column:topic;index" json:"topic,omitempty"`

	// Syllabus provenance (topic, model) and other optional keys.
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	// Percentage of completed chapters, recomputed on every completion or chapter-list change.
	Progress int `gorm:"column:progress;not null;default:0" json:"progress"`

	Chapters []Chapter `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Chapter returns the chapter with id, or nil.
func (c *Course) Chapter(id uuid.UUID) *Chapter {
	if c == nil {
		return nil
	}
	for i := range c.Chapters {
		if c.Chapters[i].ID == id {
			return &c.Chapters[i]
		}
	}
	return nil
}

// DefaultChapter is the chapter a viewer lands on: the first incomplete one,
// or the first chapter when every chapter is complete.
func (c *Course) DefaultChapter() *Chapter {
	if c == nil || len(c.Chapters) == 0 {
		return nil
	}
	for i := range c.Chapters {
		if !c.Chapters[i].Completed {
			return &c.Chapters[i]
		}
	}
	return &c.Chapters[0]
}
