package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// SyncTracker starts connector syncs and tracks their progress.
type SyncTracker interface {
	// StartSync starts a sync on the service and begins tracking it
	// from a fresh baseline.
	StartSync(ctx context.Context, connectorID string) (Tracking, error)

	// Track begins tracking a connector without starting a sync.
	// Tracking the connector already tracked returns the existing tracking.
	Track(ctx context.Context, connectorID string) Tracking

	// Stop ends the current tracking. An in-flight poll is not published.
	Stop()
}

// Tracking is a handle on one progress tracking session.
type Tracking interface {
	// ConnectorID returns the tracked connector.
	ConnectorID() string

	// State returns the current poll state.
	State() domain.PollState

	// Interval returns the wait before the next tick (0 once terminal).
	Interval() time.Duration

	// Done is closed when the tracking stops polling.
	Done() <-chan struct{}

	// Err returns the error that ended the tracking, if any.
	Err() error
}

// ConnectorService lists the connectors configured on the service.
type ConnectorService interface {
	List(ctx context.Context) ([]domain.Connector, error)
}
