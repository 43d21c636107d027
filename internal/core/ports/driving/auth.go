package driving

import (
	"context"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// AuthService manages the login state of the client.
type AuthService interface {
	// Login authenticates with email and password and stores the credential pair.
	Login(ctx context.Context, email, password string) (*domain.User, error)

	// Logout revokes the refresh token (best effort) and clears the stored pair.
	Logout(ctx context.Context) error

	// Restore loads stored credentials and fetches the current user.
	// Returns domain.ErrNotAuthenticated when nothing is stored.
	Restore(ctx context.Context) (*domain.User, error)

	// CurrentUser returns the authenticated user, or nil.
	CurrentUser() *domain.User
}
