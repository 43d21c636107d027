package driving

import "github.com/custodia-labs/secondbrain-cli/internal/core/domain"

// SessionObserver exposes the session state to front-ends.
type SessionObserver interface {
	// Subscribe registers a listener and returns a function that removes it.
	// Listeners must not block for long and must not publish back.
	Subscribe(l func(domain.SessionEvent)) (unsubscribe func())

	// Snapshot returns a copy of the current state.
	Snapshot() domain.SessionSnapshot
}
