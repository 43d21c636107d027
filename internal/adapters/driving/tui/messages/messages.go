// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

// SyncStarted carries the tracking handle once a sync was requested.
// Resumed is set when the service already had a sync running and the
// view attached to it instead.
type SyncStarted struct {
	Tracking driving.Tracking
	Resumed  bool
	Err      error
}

// SessionEventReceived wraps a session event relevant to the view.
type SessionEventReceived struct {
	Event domain.SessionEvent
}

// TrackingEnded is sent when a tracking stops polling.
type TrackingEnded struct {
	Tracking driving.Tracking
	State    domain.PollState
	// Err is the error that ended the tracking, if any.
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
