package services

import (
	"context"

	"github.com/yungbote/neurobridge-courseview/internal/data/repos"
	"github.com/yungbote/neurobridge-courseview/internal/domain/settings"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
)

// ProviderKeyPersister stores the provider credential override as a provider setting row.
type ProviderKeyPersister struct {
	Repo repos.ProviderSettingRepo
}

func (p *ProviderKeyPersister) LoadAPIKey(ctx context.Context) (string, error) {
	row, err := p.Repo.Get(ctx, nil, settings.NameOpenAIAPIKey)
	if err != nil || row == nil {
		return "", err
	}
	return row.Value, nil
}

func (p *ProviderKeyPersister) SaveAPIKey(ctx context.Context, key string) error {
	return p.Repo.Upsert(ctx, nil, settings.NameOpenAIAPIKey, key)
}

type ProviderStatus struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
}

type ProviderSettingsService interface {
	SetAPIKey(ctx context.Context, key string) error
	Status(ctx context.Context) ProviderStatus
}

type providerSettingsService struct {
	log   *logger.Logger
	keys  *openai.KeyStore
	model string
}

func NewProviderSettingsService(baseLog *logger.Logger, keys *openai.KeyStore, model string) ProviderSettingsService {
	return &providerSettingsService{
		log:   baseLog.With("service", "ProviderSettingsService"),
		keys:  keys,
		model: model,
	}
}

func (s *providerSettingsService) SetAPIKey(ctx context.Context, key string) error {
	if err := s.keys.Set(ctx, key); err != nil {
		return err
	}
	s.log.Info("provider api key updated")
	return nil
}

func (s *providerSettingsService) Status(ctx context.Context) ProviderStatus {
	return ProviderStatus{Configured: s.keys.Configured(), Model: s.model}
}
