package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-courseview/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-courseview/internal/data/repos/settings"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

type CourseRepo = learning.CourseRepo
type ChapterRepo = learning.ChapterRepo
type ProviderSettingRepo = settings.ProviderSettingRepo

type Repos struct {
	Course          CourseRepo
	Chapter         ChapterRepo
	ProviderSetting ProviderSettingRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Course:          learning.NewCourseRepo(db, log),
		Chapter:         learning.NewChapterRepo(db, log),
		ProviderSetting: settings.NewProviderSettingRepo(db, log),
	}
}
