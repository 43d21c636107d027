package tui

import "errors"

// ErrMissingSyncTracker is returned when the sync tracker is not provided.
var ErrMissingSyncTracker = errors.New("tui: sync tracker is required")

// ErrMissingSessionObserver is returned when the session observer is not provided.
var ErrMissingSessionObserver = errors.New("tui: session observer is required")

// ErrMissingConnector is returned when no connector ID is given.
var ErrMissingConnector = errors.New("tui: connector id is required")
