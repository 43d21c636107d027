package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
type ChatStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]domain.ChatMessage
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		sessions: make(map[string]map[string]domain.ChatMessage),
	}
}

// SaveMessage stores or replaces a message.
func (s *ChatStore) SaveMessage(_ context.Context, msg domain.ChatMessage) error {
	if msg.ID == "" || msg.SessionID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	messages, ok := s.sessions[msg.SessionID]
	if !ok {
		messages = make(map[string]domain.ChatMessage)
		s.sessions[msg.SessionID] = messages
	}
	msg.Sources = append([]string(nil), msg.Sources...)
	messages[msg.ID] = msg
	return nil
}

// ListMessages returns a session's messages ordered by creation time.
func (s *ChatStore) ListMessages(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := s.sessions[sessionID]
	result := make([]domain.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, msg)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSession removes every message of a session.
func (s *ChatStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
