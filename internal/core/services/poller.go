package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

// Ensure ProgressPoller implements the interface.
var _ driving.SyncTracker = (*ProgressPoller)(nil)

// ProgressPoller tracks one connector's sync job at a time by polling the
// status endpoint. Published processed counts never decrease within a
// tracking session, and the polling interval grows geometrically while the
// job keeps running.
type ProgressPoller struct {
	api     driven.IntegrationsAPI
	session *SessionState
	config  domain.PollConfig

	// after schedules the next tick. Replaced in tests.
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	current *Tracking
}

// NewProgressPoller creates a poller. An invalid config falls back to the defaults.
func NewProgressPoller(api driven.IntegrationsAPI, session *SessionState, config domain.PollConfig) *ProgressPoller {
	if err := config.Validate(); err != nil {
		config = domain.DefaultPollConfig()
	}
	return &ProgressPoller{
		api:     api,
		session: session,
		config:  config,
		after:   time.After,
	}
}

// StartSync starts a sync on the service and tracks it from a fresh baseline,
// even if the same connector is already tracked.
func (p *ProgressPoller) StartSync(ctx context.Context, connectorID string) (driving.Tracking, error) {
	if connectorID == "" {
		return nil, fmt.Errorf("%w: connector id is required", domain.ErrInvalidInput)
	}
	if err := p.api.StartSync(ctx, connectorID); err != nil {
		return nil, fmt.Errorf("start sync: %w", err)
	}

	logger.Info("Sync started for connector %s", connectorID)
	return p.begin(ctx, connectorID), nil
}

// Track begins tracking a connector without starting a sync. Tracking the
// connector already tracked returns the existing tracking, terminal or not;
// a different connector replaces it.
func (p *ProgressPoller) Track(ctx context.Context, connectorID string) driving.Tracking {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current != nil && current.connectorID == connectorID && current.State() != domain.PollIdle {
		return current
	}
	return p.begin(ctx, connectorID)
}

// Stop ends the current tracking. A poll already in flight completes but its
// result is not published.
func (p *ProgressPoller) Stop() {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()

	if current != nil {
		current.stop()
		p.session.ClearProgress(current.connectorID)
	}
}

// Current returns the active tracking, or nil.
func (p *ProgressPoller) Current() *Tracking {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// begin replaces any current tracking with a fresh one: interval at the
// floor and the processed baseline at zero.
func (p *ProgressPoller) begin(ctx context.Context, connectorID string) *Tracking {
	runCtx, cancel := context.WithCancel(ctx)
	t := &Tracking{
		connectorID: connectorID,
		state:       domain.PollPolling,
		interval:    p.config.Floor,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	p.mu.Lock()
	previous := p.current
	p.current = t
	p.mu.Unlock()

	if previous != nil {
		previous.stop()
		if previous.connectorID != connectorID {
			p.session.ClearProgress(previous.connectorID)
		}
	}

	p.session.PublishProgress(domain.SyncProgress{
		ConnectorID: connectorID,
		Status:      domain.SyncStatusSyncing,
	})

	go p.run(runCtx, t)
	return t
}

// run is the polling loop of one tracking session.
func (p *ProgressPoller) run(ctx context.Context, t *Tracking) {
	defer close(t.done)
	defer t.cancel()

	wait := t.Interval()
	for {
		select {
		case <-ctx.Done():
			t.finish(domain.PollIdle)
			return
		case <-p.after(wait):
		}

		progress, err := p.api.Progress(ctx, t.connectorID)
		if err != nil {
			if t.isStopped() || ctx.Err() != nil {
				t.finish(domain.PollIdle)
				return
			}
			if endsTracking(err) {
				logger.Warn("Stopping progress tracking for %s: %v", t.connectorID, err)
				p.abort(t, err)
				return
			}
			logger.Debug("Progress poll for %s failed: %v", t.connectorID, err)
			wait = t.grow(p.config)
			continue
		}

		next, ok := p.observe(t, *progress)
		if !ok || next == 0 {
			return
		}
		wait = next
	}
}

// endsTracking reports whether a poll error ends the tracking: the
// credentials are gone or the connector no longer exists.
func endsTracking(err error) bool {
	return errors.Is(err, domain.ErrSessionExpired) ||
		errors.Is(err, domain.ErrAuthorizationExpired) ||
		errors.Is(err, domain.ErrNotFound)
}

// abort ends t with err and drops its progress from the session, unless t
// was stopped first.
func (p *ProgressPoller) abort(t *Tracking, err error) {
	t.publishMu.Lock()
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		t.publishMu.Unlock()
		return
	}
	t.state = domain.PollIdle
	t.interval = 0
	t.stopped = true
	t.err = err
	t.mu.Unlock()

	p.session.ClearProgress(t.connectorID)
	t.publishMu.Unlock()

	p.mu.Lock()
	if p.current == t {
		p.current = nil
	}
	p.mu.Unlock()
}

// observe applies the monotonic clamp to one poll result and publishes it.
// It returns the wait before the next tick (0 once terminal) and false when
// the tracking was stopped while the poll was in flight.
func (p *ProgressPoller) observe(t *Tracking, progress domain.SyncProgress) (time.Duration, bool) {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return 0, false
	}

	progress.ConnectorID = t.connectorID
	if progress.ProcessedItems < t.lastSeen {
		progress.ProcessedItems = t.lastSeen
	}
	t.lastSeen = progress.ProcessedItems

	terminal := progress.Status.IsTerminal()
	if terminal {
		if progress.Status == domain.SyncStatusCompleted {
			progress.Percent = 100
		}
		t.state = domain.PollTerminal
		t.interval = 0
		t.stopped = true
	} else {
		t.interval = nextInterval(t.interval, p.config)
	}
	next := t.interval
	t.mu.Unlock()

	p.session.PublishProgress(progress)
	if terminal {
		logger.Info("Sync for connector %s %s", t.connectorID, progress.Status)
	}
	return next, true
}

// nextInterval grows the interval geometrically, capped at the ceiling.
func nextInterval(current time.Duration, cfg domain.PollConfig) time.Duration {
	next := time.Duration(math.Round(float64(current) * cfg.Growth))
	if next > cfg.Ceiling {
		return cfg.Ceiling
	}
	return next
}

// Tracking is one progress tracking session.
type Tracking struct {
	connectorID string
	cancel      context.CancelFunc
	done        chan struct{}

	// publishMu is held while a poll result is published, so stopping
	// waits for it and no result is published afterwards.
	publishMu sync.Mutex

	mu       sync.Mutex
	state    domain.PollState
	interval time.Duration
	lastSeen int
	stopped  bool
	err      error
}

// Ensure Tracking implements the interface.
var _ driving.Tracking = (*Tracking)(nil)

// ConnectorID returns the tracked connector.
func (t *Tracking) ConnectorID() string {
	return t.connectorID
}

// State returns the current poll state.
func (t *Tracking) State() domain.PollState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Interval returns the wait before the next tick, 0 once polling stopped.
func (t *Tracking) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Done is closed when the polling loop exits.
func (t *Tracking) Done() <-chan struct{} {
	return t.done
}

// Err returns the error that ended the tracking, or nil when it ended on a
// terminal status or was stopped.
func (t *Tracking) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// LastProcessed returns the clamped processed count last published.
func (t *Tracking) LastProcessed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

func (t *Tracking) grow(cfg domain.PollConfig) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = nextInterval(t.interval, cfg)
	return t.interval
}

func (t *Tracking) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// stop prevents further publication and cancels the loop.
func (t *Tracking) stop() {
	t.finish(domain.PollIdle)
}

func (t *Tracking) finish(state domain.PollState) {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	if !t.stopped {
		t.state = state
		t.interval = 0
		t.stopped = true
	}
	t.mu.Unlock()
	t.cancel()
}
