package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

// mockSession implements driving.SessionObserver for testing.
type mockSession struct {
	mu        sync.Mutex
	listeners map[int]func(domain.SessionEvent)
	next      int
}

var _ driving.SessionObserver = (*mockSession)(nil)

func newMockSession() *mockSession {
	return &mockSession{listeners: make(map[int]func(domain.SessionEvent))}
}

func (m *mockSession) Subscribe(l func(domain.SessionEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *mockSession) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{}
}

func (m *mockSession) publish(e domain.SessionEvent) {
	m.mu.Lock()
	ls := make([]func(domain.SessionEvent), 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.mu.Unlock()
	for _, l := range ls {
		l(e)
	}
}

func (m *mockSession) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// mockAuthService implements driving.AuthService for testing.
type mockAuthService struct {
	user       *domain.User
	loginErr   error
	restoreErr error
	logoutErr  error
	email      string
	password   string
	logouts    int
}

var _ driving.AuthService = (*mockAuthService)(nil)

func (m *mockAuthService) Login(_ context.Context, email, password string) (*domain.User, error) {
	m.email, m.password = email, password
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.user, nil
}

func (m *mockAuthService) Logout(_ context.Context) error {
	m.logouts++
	return m.logoutErr
}

func (m *mockAuthService) Restore(_ context.Context) (*domain.User, error) {
	if m.restoreErr != nil {
		return nil, m.restoreErr
	}
	return m.user, nil
}

func (m *mockAuthService) CurrentUser() *domain.User {
	return m.user
}

// mockConnectorService implements driving.ConnectorService for testing.
type mockConnectorService struct {
	connectors []domain.Connector
	err        error
}

func (m *mockConnectorService) List(_ context.Context) ([]domain.Connector, error) {
	return m.connectors, m.err
}

// mockTracking implements driving.Tracking for testing.
type mockTracking struct {
	connectorID string
	done        chan struct{}
	err         error
}

func (m *mockTracking) ConnectorID() string     { return m.connectorID }
func (m *mockTracking) State() domain.PollState { return domain.PollTerminal }
func (m *mockTracking) Interval() time.Duration { return 0 }
func (m *mockTracking) Done() <-chan struct{}   { return m.done }
func (m *mockTracking) Err() error              { return m.err }

// mockSyncTracker implements driving.SyncTracker. Starting or tracking
// publishes the scripted progress and ends the tracking.
type mockSyncTracker struct {
	session  *mockSession
	script   []domain.SyncProgress
	events   []domain.SessionEvent
	startErr error
	endErr   error
	starts   int
	tracks   int
	stops    int
}

var _ driving.SyncTracker = (*mockSyncTracker)(nil)

func (m *mockSyncTracker) StartSync(_ context.Context, connectorID string) (driving.Tracking, error) {
	m.starts++
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.play(connectorID), nil
}

func (m *mockSyncTracker) Track(_ context.Context, connectorID string) driving.Tracking {
	m.tracks++
	return m.play(connectorID)
}

func (m *mockSyncTracker) Stop() {
	m.stops++
}

func (m *mockSyncTracker) play(connectorID string) driving.Tracking {
	for _, p := range m.script {
		p.ConnectorID = connectorID
		progress := p
		m.session.publish(domain.SessionEvent{Type: domain.EventSyncProgress, Progress: &progress})
	}
	for _, e := range m.events {
		m.session.publish(e)
	}
	t := &mockTracking{connectorID: connectorID, done: make(chan struct{}), err: m.endErr}
	close(t.done)
	return t
}

// mockChatService implements driving.ChatService. Send publishes the
// scripted chunks as a growing assistant message.
type mockChatService struct {
	session   *mockSession
	chunks    []string
	sendErr   error
	sent      []string
	created   []string
	history   []domain.ChatMessage
	sessions  []domain.ChatSession
	cleared   []string
	historyOf string
}

var _ driving.ChatService = (*mockChatService)(nil)

func (m *mockChatService) CreateSession(_ context.Context, title string) (*domain.ChatSession, error) {
	m.created = append(m.created, title)
	return &domain.ChatSession{ID: "s-new", Title: title}, nil
}

func (m *mockChatService) Sessions(_ context.Context) ([]domain.ChatSession, error) {
	return m.sessions, nil
}

func (m *mockChatService) Send(_ context.Context, sessionID, text string) (*domain.ChatMessage, error) {
	m.sent = append(m.sent, text)
	question := domain.ChatMessage{ID: "q", SessionID: sessionID, Role: domain.RoleUser, Content: text}
	m.session.publish(domain.SessionEvent{Type: domain.EventMessageAppended, Message: &question})

	answer := domain.ChatMessage{ID: "a", SessionID: sessionID, Role: domain.RoleAssistant}
	appended := answer
	m.session.publish(domain.SessionEvent{Type: domain.EventMessageAppended, Message: &appended})
	for _, c := range m.chunks {
		answer.Content += c
		updated := answer
		m.session.publish(domain.SessionEvent{Type: domain.EventMessageUpdated, Message: &updated})
	}
	return &answer, m.sendErr
}

func (m *mockChatService) History(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	m.historyOf = sessionID
	return m.history, nil
}

func (m *mockChatService) Clear(_ context.Context, sessionID string) error {
	m.cleared = append(m.cleared, sessionID)
	return nil
}

// testEnv holds the mocks injected for one test.
type testEnv struct {
	auth       *mockAuthService
	connectors *mockConnectorService
	tracker    *mockSyncTracker
	chat       *mockChatService
	session    *mockSession
	config     *memory.ConfigStore
}

// setupTest injects fresh mocks, resets flag variables and returns a
// function that runs the root command with args.
func setupTest(t *testing.T) (*testEnv, func(stdin string, args ...string) (string, error)) {
	t.Helper()

	session := newMockSession()
	env := &testEnv{
		auth:       &mockAuthService{user: &domain.User{ID: "u1", Email: "ada@example.com", FullName: "Ada", IsVerified: true}},
		connectors: &mockConnectorService{},
		tracker:    &mockSyncTracker{session: session},
		chat:       &mockChatService{session: session},
		session:    session,
		config:     memory.NewConfigStore(),
	}
	SetServices(Services{
		Auth:       env.auth,
		Connectors: env.connectors,
		Sync:       env.tracker,
		Chat:       env.chat,
		Session:    env.session,
		Config:     env.config,
	})
	resetFlags()
	t.Cleanup(func() {
		SetServices(Services{})
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	run := func(stdin string, args ...string) (string, error) {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(io.Discard)
		rootCmd.SetIn(strings.NewReader(stdin))
		rootCmd.SetArgs(args)
		err := rootCmd.Execute()
		return buf.String(), err
	}
	return env, run
}

func resetFlags() {
	verbose = false
	ephemeral = false
	configDir = ""
	cleanup = nil
	loginEmail = ""
	loginPasswordStdin = false
	syncPlain = false
	syncAttach = false
	chatSessionID = ""
	chatTitle = ""
}
