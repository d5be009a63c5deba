package domain

import (
	"github.com/yungbote/neurobridge-courseview/internal/domain/learning"
	"github.com/yungbote/neurobridge-courseview/internal/domain/settings"
)

type (
	Course          = learning.Course
	Chapter         = learning.Chapter
	ProviderSetting = settings.ProviderSetting
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&learning.Course{},
		&learning.Chapter{},
		&settings.ProviderSetting{},
	}
}
