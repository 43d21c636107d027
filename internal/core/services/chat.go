package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService sends chat messages and streams the answers into the session
// state, keeping a local transcript in the chat store.
type ChatService struct {
	api     driven.ChatAPI
	store   driven.ChatStore
	session *SessionState

	// newID and now are replaced in tests.
	newID func() string
	now   func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(api driven.ChatAPI, store driven.ChatStore, session *SessionState) *ChatService {
	return &ChatService{
		api:     api,
		store:   store,
		session: session,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// CreateSession creates a chat session on the service.
func (s *ChatService) CreateSession(ctx context.Context, title string) (*domain.ChatSession, error) {
	return s.api.CreateSession(ctx, title)
}

// Sessions lists the chat sessions of the current user.
func (s *ChatService) Sessions(ctx context.Context) ([]domain.ChatSession, error) {
	return s.api.ListSessions(ctx)
}

// Send posts text to the session and streams the answer. The user message and
// an empty assistant message are appended first; the assistant message grows
// as payloads arrive. On error the returned message holds the partial answer.
func (s *ChatService) Send(ctx context.Context, sessionID, text string) (*domain.ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	question := domain.ChatMessage{
		ID:        s.newID(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	}
	s.session.AppendMessage(question)
	s.save(ctx, question)

	answer := domain.ChatMessage{
		ID:        s.newID(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		CreatedAt: s.now(),
	}
	s.session.AppendMessage(answer)

	body, err := s.api.Stream(ctx, sessionID, text)
	if err != nil {
		return &answer, fmt.Errorf("send message: %w", err)
	}
	defer body.Close()

	assembler := NewStreamAssembler(func(content string) {
		s.session.UpdateMessageContent(answer.ID, content)
	})
	err = assembler.ReadFrom(ctx, body)

	answer.Content = assembler.Content()
	s.save(ctx, answer)
	if err != nil {
		return &answer, fmt.Errorf("stream answer: %w", err)
	}
	return &answer, nil
}

// History returns the locally stored transcript of a session.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	return s.store.ListMessages(ctx, sessionID)
}

// Clear destroys the session's messages locally and in the session state.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	s.session.ClearMessages(sessionID)
	return nil
}

// save persists a message. Failures are logged, not returned.
func (s *ChatService) save(ctx context.Context, msg domain.ChatMessage) {
	if err := s.store.SaveMessage(context.WithoutCancel(ctx), msg); err != nil {
		logger.Warn("Failed to store chat message %s: %v", msg.ID, err)
	}
}
