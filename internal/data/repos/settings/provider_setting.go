package settings

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

type ProviderSettingRepo interface {
	// Get returns nil, nil when the setting has never been written.
	Get(ctx context.Context, tx *gorm.DB, name string) (*types.ProviderSetting, error)
	Upsert(ctx context.Context, tx *gorm.DB, name, value string) error
}

type providerSettingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProviderSettingRepo(db *gorm.DB, baseLog *logger.Logger) ProviderSettingRepo {
	repoLog := baseLog.With("repo", "ProviderSettingRepo")
	return &providerSettingRepo{db: db, log: repoLog}
}

func (r *providerSettingRepo) Get(ctx context.Context, tx *gorm.DB, name string) (*types.ProviderSetting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.ProviderSetting
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *providerSettingRepo) Upsert(ctx context.Context, tx *gorm.DB, name, value string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := &types.ProviderSetting{Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(row).Error
}
