package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// TokenRenewer exchanges a refresh token for a fresh credential pair.
// It must not go through the RequestPipeline.
type TokenRenewer interface {
	Renew(ctx context.Context, refreshToken string) (domain.CredentialPair, error)
}

// AuthAPI is the service's authentication surface.
type AuthAPI interface {
	TokenRenewer

	// Login exchanges an email and password for a credential pair.
	Login(ctx context.Context, email, password string) (domain.CredentialPair, error)

	// Logout revokes the given refresh token on the service.
	Logout(ctx context.Context, refreshToken string) error

	// Me returns the authenticated user.
	Me(ctx context.Context) (*domain.User, error)
}

// IntegrationsAPI is the service's connector surface.
type IntegrationsAPI interface {
	// ListConnectors returns the connectors configured for the tenant.
	ListConnectors(ctx context.Context) ([]domain.Connector, error)

	// StartSync starts a background sync. Returns domain.ErrSyncInProgress
	// if one is already running.
	StartSync(ctx context.Context, connectorID string) error

	// Progress returns the current status of the connector's sync job.
	Progress(ctx context.Context, connectorID string) (*domain.SyncProgress, error)
}

// ChatAPI is the service's chat surface.
type ChatAPI interface {
	// CreateSession creates a new chat session.
	CreateSession(ctx context.Context, title string) (*domain.ChatSession, error)

	// ListSessions returns the tenant's chat sessions.
	ListSessions(ctx context.Context) ([]domain.ChatSession, error)

	// Stream sends a message and returns the event-stream body of the answer.
	// The caller must close it.
	Stream(ctx context.Context, sessionID, message string) (io.ReadCloser, error)
}
