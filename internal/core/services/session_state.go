package services

import (
	"sync"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

// Listener receives session events. Listeners are called one at a time,
// in publish order, and must not publish into the SessionState themselves.
type Listener = func(domain.SessionEvent)

// SessionState is the process-wide observable record of who is logged in,
// which sync is active and what the current chat transcript holds.
// It is mutated only by the pipeline, the poller and the chat service.
type SessionState struct {
	// emitMu serialises publication so listeners see events in order.
	emitMu sync.Mutex

	mu            sync.RWMutex
	authenticated bool
	user          *domain.User
	activeSync    *domain.SyncProgress
	messages      []domain.ChatMessage
	listeners     map[int]Listener
	nextID        int
}

// Ensure SessionState implements the interface.
var _ driving.SessionObserver = (*SessionState)(nil)

// NewSessionState creates an unauthenticated session state.
func NewSessionState() *SessionState {
	return &SessionState{
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (s *SessionState) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a copy of the current state.
func (s *SessionState) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.SessionSnapshot{
		Authenticated: s.authenticated,
		User:          s.user,
		Messages:      make([]domain.ChatMessage, len(s.messages)),
	}
	if s.activeSync != nil {
		progress := *s.activeSync
		snap.ActiveSync = &progress
	}
	copy(snap.Messages, s.messages)
	return snap
}

// IsAuthenticated returns true while a user is logged in.
func (s *SessionState) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// SetAuthenticated records a logged-in user.
func (s *SessionState) SetAuthenticated(user *domain.User) {
	s.apply(func() *domain.SessionEvent {
		s.authenticated = true
		s.user = user
		return &domain.SessionEvent{Type: domain.EventLoggedIn, User: user}
	})
}

// SetLoggedOut records an explicit logout.
func (s *SessionState) SetLoggedOut() {
	s.apply(func() *domain.SessionEvent {
		s.authenticated = false
		s.user = nil
		return &domain.SessionEvent{Type: domain.EventLoggedOut}
	})
}

// ExpireSession marks the session unauthenticated and publishes one
// SessionExpired event. Callers invoke it once per failed renewal.
func (s *SessionState) ExpireSession() {
	s.apply(func() *domain.SessionEvent {
		s.authenticated = false
		s.user = nil
		return &domain.SessionEvent{Type: domain.EventSessionExpired}
	})
}

// PublishProgress records and publishes a progress observation.
func (s *SessionState) PublishProgress(progress domain.SyncProgress) {
	s.apply(func() *domain.SessionEvent {
		stored := progress
		s.activeSync = &stored
		published := progress
		return &domain.SessionEvent{Type: domain.EventSyncProgress, Progress: &published}
	})
}

// ClearProgress removes the active sync if it belongs to connectorID.
func (s *SessionState) ClearProgress(connectorID string) {
	s.apply(func() *domain.SessionEvent {
		if s.activeSync == nil || s.activeSync.ConnectorID != connectorID {
			return nil
		}
		s.activeSync = nil
		return &domain.SessionEvent{Type: domain.EventSyncCleared, ConnectorID: connectorID}
	})
}

// AppendMessage adds a message to the transcript.
func (s *SessionState) AppendMessage(msg domain.ChatMessage) {
	s.apply(func() *domain.SessionEvent {
		s.messages = append(s.messages, msg)
		published := msg
		return &domain.SessionEvent{Type: domain.EventMessageAppended, Message: &published}
	})
}

// UpdateMessageContent replaces the content of a message wholesale.
// Unknown ids are ignored.
func (s *SessionState) UpdateMessageContent(id, content string) {
	s.apply(func() *domain.SessionEvent {
		for i := range s.messages {
			if s.messages[i].ID == id {
				s.messages[i].Content = content
				published := s.messages[i]
				return &domain.SessionEvent{Type: domain.EventMessageUpdated, Message: &published}
			}
		}
		return nil
	})
}

// ClearMessages removes the messages of a chat session from the transcript.
func (s *SessionState) ClearMessages(sessionID string) {
	s.apply(func() *domain.SessionEvent {
		kept := s.messages[:0]
		for _, msg := range s.messages {
			if msg.SessionID != sessionID {
				kept = append(kept, msg)
			}
		}
		s.messages = kept
		return &domain.SessionEvent{Type: domain.EventMessagesCleared}
	})
}

// apply runs mutate under the state lock and delivers the resulting event,
// if any, to every listener.
func (s *SessionState) apply(mutate func() *domain.SessionEvent) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	event := mutate()
	var listeners []Listener
	if event != nil {
		listeners = make([]Listener, 0, len(s.listeners))
		for id := 0; id < s.nextID; id++ {
			if l, ok := s.listeners[id]; ok {
				listeners = append(listeners, l)
			}
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(*event)
	}
}
