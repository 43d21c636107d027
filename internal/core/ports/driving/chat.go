package driving

import (
	"context"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// ChatService sends messages and streams answers into the session state.
type ChatService interface {
	// CreateSession creates a new chat session on the service.
	CreateSession(ctx context.Context, title string) (*domain.ChatSession, error)

	// Sessions lists the chat sessions stored on the service.
	Sessions(ctx context.Context) ([]domain.ChatSession, error)

	// Send posts a user message and streams the assistant answer.
	// The returned message holds whatever content arrived, even on error.
	Send(ctx context.Context, sessionID, text string) (*domain.ChatMessage, error)

	// History returns the locally stored transcript of a session.
	History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)

	// Clear destroys the session's messages locally and in the session state.
	Clear(ctx context.Context, sessionID string) error
}
