package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// AuthService handles explicit login and logout. It is, with the renewal
// coordinator, the only writer of the credential store.
type AuthService struct {
	api     driven.AuthAPI
	store   driven.CredentialStore
	session *SessionState
}

// NewAuthService creates a new auth service.
func NewAuthService(api driven.AuthAPI, store driven.CredentialStore, session *SessionState) *AuthService {
	return &AuthService{
		api:     api,
		store:   store,
		session: session,
	}
}

// Login exchanges email and password for a credential pair, stores it and
// fetches the user profile.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	pair, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, pair); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	s.session.SetAuthenticated(user)
	logger.Info("Logged in as %s", user.Email)
	return user, nil
}

// Logout revokes the refresh token on the service and clears local state.
// A failed revocation does not prevent the local logout.
func (s *AuthService) Logout(ctx context.Context) error {
	pair, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	if pair.HasRefreshToken() {
		if err := s.api.Logout(ctx, pair.RefreshToken); err != nil {
			logger.Warn("Remote logout failed: %v", err)
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.session.SetLoggedOut()
	return nil
}

// Restore resumes a stored login. The profile call goes through the request
// pipeline, so an expired access token is renewed transparently.
func (s *AuthService) Restore(ctx context.Context) (*domain.User, error) {
	pair, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if pair.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.session.SetAuthenticated(user)
	return user, nil
}

// CurrentUser returns the authenticated user, or nil.
func (s *AuthService) CurrentUser() *domain.User {
	return s.session.Snapshot().User
}
