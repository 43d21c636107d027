// Package tui provides the interactive sync progress view of brain.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Tracker starts syncs and tracks their progress.
	Tracker driving.SyncTracker

	// Session publishes the progress observations.
	Session driving.SessionObserver
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(tracker driving.SyncTracker, session driving.SessionObserver) *Ports {
	return &Ports{
		Tracker: tracker,
		Session: session,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Tracker == nil {
		return ErrMissingSyncTracker
	}
	if p.Session == nil {
		return ErrMissingSessionObserver
	}
	return nil
}
