package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
// Used for tests and ephemeral sessions.
type CredentialStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		values: make(map[string]string),
	}
}

// Load returns the stored pair, or a zero pair.
func (s *CredentialStore) Load(_ context.Context) (domain.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CredentialPair{
		AccessToken:  s.values[domain.CredentialKeyAccess],
		RefreshToken: s.values[domain.CredentialKeyRefresh],
	}, nil
}

// Save replaces the stored pair.
func (s *CredentialStore) Save(_ context.Context, pair domain.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[domain.CredentialKeyAccess] = pair.AccessToken
	s.values[domain.CredentialKeyRefresh] = pair.RefreshToken
	return nil
}

// Clear removes both keys.
func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, domain.CredentialKeyAccess)
	delete(s.values, domain.CredentialKeyRefresh)
	return nil
}
