package domain

// SessionEventType identifies what changed in the session state.
type SessionEventType int

const (
	// EventLoggedIn is published when a user becomes authenticated.
	EventLoggedIn SessionEventType = iota
	// EventLoggedOut is published on explicit logout.
	EventLoggedOut
	// EventSessionExpired is published once per failed credential renewal.
	EventSessionExpired
	// EventSyncProgress is published for every progress observation.
	EventSyncProgress
	// EventSyncCleared is published when progress tracking for a connector stops.
	EventSyncCleared
	// EventMessageAppended is published when a chat message is added.
	EventMessageAppended
	// EventMessageUpdated is published when a streamed message grows.
	EventMessageUpdated
	// EventMessagesCleared is published when the chat transcript is cleared.
	EventMessagesCleared
)

// String returns the string representation of the event type.
func (t SessionEventType) String() string {
	switch t {
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventSessionExpired:
		return "session_expired"
	case EventSyncProgress:
		return "sync_progress"
	case EventSyncCleared:
		return "sync_cleared"
	case EventMessageAppended:
		return "message_appended"
	case EventMessageUpdated:
		return "message_updated"
	case EventMessagesCleared:
		return "messages_cleared"
	default:
		return "unknown"
	}
}

// SessionEvent describes one change of the session state.
// Only the field matching Type is set.
type SessionEvent struct {
	Type        SessionEventType
	User        *User
	Progress    *SyncProgress
	ConnectorID string
	Message     *ChatMessage
}

// SessionSnapshot is a copy of the observable session state.
type SessionSnapshot struct {
	Authenticated bool
	User          *User
	ActiveSync    *SyncProgress
	Messages      []ChatMessage
}
