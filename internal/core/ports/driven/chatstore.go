package driven

import (
	"context"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// ChatStore keeps a local transcript of chat sessions.
type ChatStore interface {
	// SaveMessage stores or replaces a message.
	SaveMessage(ctx context.Context, msg domain.ChatMessage) error

	// ListMessages returns a session's messages ordered by creation time.
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)

	// DeleteSession removes every message of a session.
	DeleteSession(ctx context.Context, sessionID string) error
}
