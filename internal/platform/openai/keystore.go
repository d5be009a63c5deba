package openai

import (
	"context"
	"strings"
	"sync"
)

// KeyPersister stores the credential override outside the process.
type KeyPersister interface {
	LoadAPIKey(ctx context.Context) (string, error)
	SaveAPIKey(ctx context.Context, key string) error
}

// KeyStore holds the provider credential. The configured value is the initial
// default; a persisted override replaces it on Load and on Set.
type KeyStore struct {
	mu        sync.RWMutex
	key       string
	persister KeyPersister
}

func NewKeyStore(initial string, persister KeyPersister) *KeyStore {
	return &KeyStore{key: strings.TrimSpace(initial), persister: persister}
}

// Load applies the persisted override, if any.
func (s *KeyStore) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	key, err := s.persister.LoadAPIKey(ctx)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

func (s *KeyStore) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *KeyStore) Configured() bool { return s.APIKey() != "" }

// Set persists key first, then swaps the in-memory value.
func (s *KeyStore) Set(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}
	if s.persister != nil {
		if err := s.persister.SaveAPIKey(ctx, key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}
