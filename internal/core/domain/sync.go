package domain

import "time"

// SyncStatus is the state of a connector's background sync as reported by the service.
type SyncStatus string

const (
	// SyncStatusIdle is reported before any sync has been recorded for the connector.
	SyncStatusIdle SyncStatus = "idle"
	// SyncStatusSyncing means the sync job is still running.
	SyncStatusSyncing SyncStatus = "syncing"
	// SyncStatusCompleted means the sync job finished successfully.
	SyncStatusCompleted SyncStatus = "completed"
	// SyncStatusFailed means the sync job stopped with an error.
	SyncStatusFailed SyncStatus = "failed"
)

// IsTerminal returns true for statuses after which no further progress is reported.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// SyncProgress is one observation of a connector's sync job.
type SyncProgress struct {
	// ConnectorID identifies the connector being synced.
	ConnectorID string `json:"connector_id"`
	// Status is the job state.
	Status SyncStatus `json:"status"`
	// Percent is the completion percentage (0..100).
	Percent float64 `json:"percent"`
	// TotalItems is the number of items the job expects to process.
	TotalItems int `json:"total_items"`
	// ProcessedItems is the number of items handled so far.
	ProcessedItems int `json:"processed_items"`
	// IndexedItems is the number of items written to the search index.
	IndexedItems int `json:"indexed_items"`
	// FailedItems is the number of items that could not be processed.
	FailedItems int `json:"failed_items"`
	// CurrentStep is a human-readable description of the current phase.
	CurrentStep string `json:"current_step,omitempty"`
	// ErrorMessage is set when the job failed.
	ErrorMessage string `json:"error_message,omitempty"`
	// StartedAt is when the job started.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the job reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Connector is a data source configured on the service (Google Drive, Slack, Notion).
type Connector struct {
	ID            string     `json:"id"`
	ConnectorType string     `json:"connector_type"`
	Name          string     `json:"name"`
	IsActive      bool       `json:"is_active"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus    string     `json:"sync_status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PollState is the state of a progress tracking session.
type PollState int

const (
	// PollIdle means no tracking is active.
	PollIdle PollState = iota
	// PollPolling means status ticks are scheduled.
	PollPolling
	// PollTerminal means a terminal status was observed; no further ticks.
	PollTerminal
)

// String returns the string representation of the poll state.
func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollPolling:
		return "polling"
	case PollTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// PollConfig controls the adaptive polling interval.
type PollConfig struct {
	// Floor is the initial interval and the value restored on reset.
	Floor time.Duration
	// Ceiling caps the interval.
	Ceiling time.Duration
	// Growth multiplies the interval after each non-terminal observation.
	Growth float64
}

// DefaultPollConfig returns the polling defaults: 2s floor, 10s ceiling, 1.2x growth.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Floor:   2 * time.Second,
		Ceiling: 10 * time.Second,
		Growth:  1.2,
	}
}

// Validate checks the configuration for consistency.
func (c PollConfig) Validate() error {
	if c.Floor <= 0 || c.Ceiling < c.Floor || c.Growth < 1 {
		return ErrInvalidInput
	}
	return nil
}
