package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockCredentialStore implements driven.CredentialStore for testing.
type mockCredentialStore struct {
	mu      sync.Mutex
	pair    domain.CredentialPair
	loadErr error
	saveErr error
	saves   int
	clears  int
}

var _ driven.CredentialStore = (*mockCredentialStore)(nil)

func newMockCredentialStore(access, refresh string) *mockCredentialStore {
	return &mockCredentialStore{pair: domain.CredentialPair{AccessToken: access, RefreshToken: refresh}}
}

func (m *mockCredentialStore) Load(_ context.Context) (domain.CredentialPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.CredentialPair{}, m.loadErr
	}
	return m.pair, nil
}

func (m *mockCredentialStore) Save(_ context.Context, pair domain.CredentialPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.pair = pair
	return nil
}

func (m *mockCredentialStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.pair = domain.CredentialPair{}
	return nil
}

func (m *mockCredentialStore) current() domain.CredentialPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair
}

func (m *mockCredentialStore) clearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// mockDoer implements driven.HTTPDoer with a handler func and records every
// request it receives.
type mockDoer struct {
	mu       sync.Mutex
	handler  func(req *http.Request) (*http.Response, error)
	requests []recordedRequest
}

type recordedRequest struct {
	Path  string
	Auth  string
	Body  string
	Query string
}

func newMockDoer(handler func(req *http.Request) (*http.Response, error)) *mockDoer {
	return &mockDoer{handler: handler}
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	rec := recordedRequest{
		Path:  req.URL.Path,
		Auth:  req.Header.Get("Authorization"),
		Query: req.URL.RawQuery,
	}
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		rec.Body = string(body)
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	m.mu.Unlock()

	return m.handler(req)
}

func (m *mockDoer) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// requireToken answers 200 when the request carries the given bearer token
// and 401 otherwise.
func requireToken(token string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") == "Bearer "+token {
			return textResponse(http.StatusOK, "ok"), nil
		}
		return textResponse(http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`), nil
	}
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// mockRenewer implements driven.TokenRenewer. When gate is set, Renew blocks
// until the gate is closed.
type mockRenewer struct {
	gate  chan struct{}
	pair  domain.CredentialPair
	err   error
	calls atomic.Int32
	seen  atomic.Value
}

var _ driven.TokenRenewer = (*mockRenewer)(nil)

func (m *mockRenewer) Renew(_ context.Context, refreshToken string) (domain.CredentialPair, error) {
	m.calls.Add(1)
	m.seen.Store(refreshToken)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return domain.CredentialPair{}, m.err
	}
	return m.pair, nil
}

// mockAuthAPI implements driven.AuthAPI for testing.
type mockAuthAPI struct {
	mockRenewer

	loginPair   domain.CredentialPair
	loginErr    error
	logoutErr   error
	logoutToken string
	user        *domain.User
	meErr       error
	meCalls     int
}

var _ driven.AuthAPI = (*mockAuthAPI)(nil)

func (m *mockAuthAPI) Login(_ context.Context, _, _ string) (domain.CredentialPair, error) {
	if m.loginErr != nil {
		return domain.CredentialPair{}, m.loginErr
	}
	return m.loginPair, nil
}

func (m *mockAuthAPI) Logout(_ context.Context, refreshToken string) error {
	m.logoutToken = refreshToken
	return m.logoutErr
}

func (m *mockAuthAPI) Me(_ context.Context) (*domain.User, error) {
	m.meCalls++
	if m.meErr != nil {
		return nil, m.meErr
	}
	return m.user, nil
}

// progressResult is one scripted answer of mockIntegrationsAPI.Progress.
type progressResult struct {
	progress *domain.SyncProgress
	err      error
}

// mockIntegrationsAPI implements driven.IntegrationsAPI. Progress answers
// from the responses channel and blocks while it is empty. When gate is set,
// Progress waits for it without honouring ctx, simulating a poll in flight.
type mockIntegrationsAPI struct {
	connectors []domain.Connector
	listErr    error
	startErr   error
	started    []string
	responses  chan progressResult
	gate       chan struct{}
	polls      atomic.Int32
	mu         sync.Mutex
}

var _ driven.IntegrationsAPI = (*mockIntegrationsAPI)(nil)

func newMockIntegrationsAPI() *mockIntegrationsAPI {
	return &mockIntegrationsAPI{responses: make(chan progressResult, 64)}
}

func (m *mockIntegrationsAPI) ListConnectors(_ context.Context) ([]domain.Connector, error) {
	return m.connectors, m.listErr
}

func (m *mockIntegrationsAPI) StartSync(_ context.Context, connectorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, connectorID)
	return nil
}

func (m *mockIntegrationsAPI) Progress(ctx context.Context, _ string) (*domain.SyncProgress, error) {
	m.polls.Add(1)
	if m.gate != nil {
		<-m.gate
		return &domain.SyncProgress{Status: domain.SyncStatusSyncing, ProcessedItems: 7}, nil
	}
	select {
	case r := <-m.responses:
		return r.progress, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *mockIntegrationsAPI) push(status domain.SyncStatus, processed int) {
	m.responses <- progressResult{progress: &domain.SyncProgress{Status: status, ProcessedItems: processed}}
}

func (m *mockIntegrationsAPI) pushErr(err error) {
	m.responses <- progressResult{err: err}
}

// mockChatAPI implements driven.ChatAPI for testing.
type mockChatAPI struct {
	session   *domain.ChatSession
	stream    io.ReadCloser
	streamErr error
	sent      string
}

var _ driven.ChatAPI = (*mockChatAPI)(nil)

func (m *mockChatAPI) CreateSession(_ context.Context, title string) (*domain.ChatSession, error) {
	if m.session == nil {
		return nil, errors.New("no session configured")
	}
	s := *m.session
	s.Title = title
	return &s, nil
}

func (m *mockChatAPI) ListSessions(_ context.Context) ([]domain.ChatSession, error) {
	if m.session == nil {
		return nil, nil
	}
	return []domain.ChatSession{*m.session}, nil
}

func (m *mockChatAPI) Stream(_ context.Context, _, message string) (io.ReadCloser, error) {
	m.sent = message
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return m.stream, nil
}

// mockChatStore implements driven.ChatStore for testing.
type mockChatStore struct {
	mu       sync.Mutex
	messages map[string]domain.ChatMessage
	order    []string
	saveErr  error
}

var _ driven.ChatStore = (*mockChatStore)(nil)

func newMockChatStore() *mockChatStore {
	return &mockChatStore{messages: make(map[string]domain.ChatMessage)}
}

func (m *mockChatStore) SaveMessage(_ context.Context, msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.messages[msg.ID]; !ok {
		m.order = append(m.order, msg.ID)
	}
	m.messages[msg.ID] = msg
	return nil
}

func (m *mockChatStore) ListMessages(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, id := range m.order {
		if msg := m.messages[id]; msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockChatStore) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	for _, id := range m.order {
		if m.messages[id].SessionID == sessionID {
			delete(m.messages, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return nil
}

// eventRecorder collects session events.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func recordEvents(s *SessionState) *eventRecorder {
	r := &eventRecorder{}
	s.Subscribe(func(e domain.SessionEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *eventRecorder) ofType(t domain.SessionEventType) []domain.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// processed returns the processed counts of every progress event.
func (r *eventRecorder) processed() []int {
	var out []int
	for _, e := range r.ofType(domain.EventSyncProgress) {
		out = append(out, e.Progress.ProcessedItems)
	}
	return out
}
