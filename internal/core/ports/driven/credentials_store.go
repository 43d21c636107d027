package driven

import (
	"context"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// CredentialStore persists the current credential pair under two fixed keys.
// It is a pure key/value accessor with no refresh logic.
type CredentialStore interface {
	// Load returns the stored pair. A zero pair (not an error) means nothing is stored.
	Load(ctx context.Context) (domain.CredentialPair, error)

	// Save replaces the stored pair.
	Save(ctx context.Context, pair domain.CredentialPair) error

	// Clear removes the stored pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
