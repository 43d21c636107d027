package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// Ensure ChatClient implements the interface.
var _ driven.ChatAPI = (*ChatClient)(nil)

// ChatClient talks to the /chat endpoints.
type ChatClient struct {
	api *Client
}

type createSessionRequest struct {
	Title *string `json:"title"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// NewChatClient creates a chat client.
func NewChatClient(api *Client) *ChatClient {
	return &ChatClient{api: api}
}

// CreateSession creates a chat session. An empty title is sent as null.
func (c *ChatClient) CreateSession(ctx context.Context, title string) (*domain.ChatSession, error) {
	body := createSessionRequest{}
	if title != "" {
		body.Title = &title
	}
	req, err := c.api.newRequest(ctx, http.MethodPost, "/chat/sessions", body)
	if err != nil {
		return nil, err
	}

	var resp sessionResponse
	if err := c.api.do(req, &resp); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session := resp.toDomain()
	return &session, nil
}

// ListSessions returns the tenant's chat sessions, most recent first.
func (c *ChatClient) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	req, err := c.api.newRequest(ctx, http.MethodGet, "/chat/sessions", nil)
	if err != nil {
		return nil, err
	}

	var resp []sessionResponse
	if err := c.api.do(req, &resp); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.ChatSession, 0, len(resp))
	for _, r := range resp {
		sessions = append(sessions, r.toDomain())
	}
	return sessions, nil
}

// Stream posts a message and returns the event-stream body of the answer.
func (c *ChatClient) Stream(ctx context.Context, sessionID, message string) (io.ReadCloser, error) {
	path := "/chat/sessions/" + url.PathEscape(sessionID) + "/chat/stream"
	req, err := c.api.newRequest(ctx, http.MethodPost, path, chatRequest{Message: message})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.api.doer.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		apiErr := decodeError(resp)
		if domain.IsAPIStatus(apiErr, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: chat session %s", domain.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("stream message: %w", apiErr)
	}
	return resp.Body, nil
}
