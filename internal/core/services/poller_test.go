package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// fakeClock replaces time.After in the poller. Every wait fires at once and
// is recorded.
type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

func newTestPoller(api *mockIntegrationsAPI) (*ProgressPoller, *SessionState, *fakeClock) {
	session := NewSessionState()
	clock := &fakeClock{}
	p := NewProgressPoller(api, session, domain.DefaultPollConfig())
	p.after = clock.after
	return p, session, clock
}

func waitDone(t *testing.T, tr interface{ Done() <-chan struct{} }) {
	t.Helper()
	select {
	case <-tr.Done():
	case <-time.After(waitFor):
		t.Fatal("tracking did not stop")
	}
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func TestNewProgressPoller_InvalidConfigFallsBack(t *testing.T) {
	p := NewProgressPoller(newMockIntegrationsAPI(), NewSessionState(), domain.PollConfig{Floor: -1})
	assert.Equal(t, domain.DefaultPollConfig(), p.config)
}

func TestProgressPoller_StartSync_RequiresConnector(t *testing.T) {
	p, _, _ := newTestPoller(newMockIntegrationsAPI())

	_, err := p.StartSync(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProgressPoller_StartSync_PropagatesStartError(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.startErr = domain.ErrSyncInProgress
	p, session, _ := newTestPoller(api)
	events := recordEvents(session)

	_, err := p.StartSync(context.Background(), "c1")
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	assert.Nil(t, p.Current())
	assert.Empty(t, events.ofType(domain.EventSyncProgress))
}

func TestProgressPoller_BackoffGrowth(t *testing.T) {
	api := newMockIntegrationsAPI()
	for i := 0; i < 10; i++ {
		api.push(domain.SyncStatusSyncing, i)
	}
	api.push(domain.SyncStatusCompleted, 10)
	p, _, clock := newTestPoller(api)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	expected := []time.Duration{
		ms(2000), ms(2400), ms(2880), ms(3456), ms(4147.2),
		ms(4976.64), ms(5971.968), ms(7166.3616), ms(8599.63392),
		ms(10000), ms(10000),
	}
	waits := clock.recorded()
	require.Len(t, waits, len(expected))
	for i := range expected {
		assert.InDelta(t, float64(expected[i]), float64(waits[i]), float64(time.Microsecond), "wait %d", i)
	}

	assert.Equal(t, time.Duration(0), tr.Interval())
	assert.Equal(t, domain.PollTerminal, tr.State())
}

func TestProgressPoller_ProcessedNeverDecreases(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.push(domain.SyncStatusSyncing, 5)
	api.push(domain.SyncStatusSyncing, 3)
	api.push(domain.SyncStatusSyncing, 10)
	p, session, _ := newTestPoller(api)
	events := recordEvents(session)

	_, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(events.processed()) == 4 }, waitFor, tick)
	p.Stop()

	assert.Equal(t, []int{0, 5, 5, 10}, events.processed())
}

func TestProgressPoller_CompletedPublishesFullPercent(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.responses <- progressResult{progress: &domain.SyncProgress{
		Status:         domain.SyncStatusCompleted,
		Percent:        97.5,
		TotalItems:     40,
		ProcessedItems: 40,
	}}
	p, session, _ := newTestPoller(api)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	snap := session.Snapshot()
	require.NotNil(t, snap.ActiveSync)
	assert.Equal(t, "c1", snap.ActiveSync.ConnectorID)
	assert.Equal(t, domain.SyncStatusCompleted, snap.ActiveSync.Status)
	assert.InDelta(t, 100.0, snap.ActiveSync.Percent, 0.001)
}

func TestProgressPoller_FailedKeepsReportedPercent(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.responses <- progressResult{progress: &domain.SyncProgress{
		Status:       domain.SyncStatusFailed,
		Percent:      30,
		ErrorMessage: "token revoked",
	}}
	p, session, _ := newTestPoller(api)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	snap := session.Snapshot()
	require.NotNil(t, snap.ActiveSync)
	assert.Equal(t, domain.SyncStatusFailed, snap.ActiveSync.Status)
	assert.InDelta(t, 30.0, snap.ActiveSync.Percent, 0.001)
	assert.Equal(t, "token revoked", snap.ActiveSync.ErrorMessage)
	assert.Equal(t, domain.PollTerminal, tr.State())
}

func TestProgressPoller_TerminalIsAbsorbing(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.push(domain.SyncStatusCompleted, 3)
	api.push(domain.SyncStatusSyncing, 4)
	p, session, _ := newTestPoller(api)
	events := recordEvents(session)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	// Tracking the same connector again does not resume polling.
	again := p.Track(context.Background(), "c1")
	assert.Same(t, tr, again)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), api.polls.Load())
	assert.Equal(t, []int{0, 3}, events.processed())
	assert.Equal(t, domain.PollTerminal, tr.State())
}

func TestProgressPoller_IdleStatusKeepsPolling(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.push(domain.SyncStatusIdle, 0)
	api.push(domain.SyncStatusSyncing, 2)
	api.push(domain.SyncStatusCompleted, 4)
	p, _, _ := newTestPoller(api)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	assert.Equal(t, int32(3), api.polls.Load())
}

func TestProgressPoller_RestartResetsBaseline(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.push(domain.SyncStatusSyncing, 10)
	p, session, _ := newTestPoller(api)
	events := recordEvents(session)

	first, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(events.processed()) == 2 }, waitFor, tick)

	second, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, first)
	assert.NotSame(t, first, second)

	api.push(domain.SyncStatusSyncing, 2)
	require.Eventually(t, func() bool { return len(events.processed()) == 4 }, waitFor, tick)

	// One observation after the floor.
	assert.Equal(t, 2400*time.Millisecond, second.Interval())
	p.Stop()

	assert.Equal(t, []int{0, 10, 0, 2}, events.processed())
	assert.Equal(t, []string{"c1", "c1"}, api.started)
}

func TestProgressPoller_TrackSameConnectorReturnsExisting(t *testing.T) {
	api := newMockIntegrationsAPI()
	p, _, _ := newTestPoller(api)

	first := p.Track(context.Background(), "c1")
	second := p.Track(context.Background(), "c1")
	assert.Same(t, first, second)
	assert.Equal(t, domain.PollPolling, first.State())

	p.Stop()
	waitDone(t, first)
}

func TestProgressPoller_TrackDifferentConnectorReplaces(t *testing.T) {
	api := newMockIntegrationsAPI()
	p, session, _ := newTestPoller(api)
	events := recordEvents(session)

	first := p.Track(context.Background(), "c1")
	second := p.Track(context.Background(), "c2")
	waitDone(t, first)

	assert.Equal(t, domain.PollIdle, first.State())
	assert.Equal(t, "c2", second.ConnectorID())

	cleared := events.ofType(domain.EventSyncCleared)
	require.Len(t, cleared, 1)
	assert.Equal(t, "c1", cleared[0].ConnectorID)

	snap := session.Snapshot()
	require.NotNil(t, snap.ActiveSync)
	assert.Equal(t, "c2", snap.ActiveSync.ConnectorID)

	p.Stop()
}

func TestProgressPoller_StopDropsInFlightResult(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.gate = make(chan struct{})
	p, session, _ := newTestPoller(api)
	events := recordEvents(session)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return api.polls.Load() == 1 }, waitFor, tick)

	p.Stop()
	close(api.gate)
	waitDone(t, tr)

	assert.Equal(t, []int{0}, events.processed())
	assert.Len(t, events.ofType(domain.EventSyncCleared), 1)
	assert.Nil(t, session.Snapshot().ActiveSync)
	assert.Equal(t, domain.PollIdle, tr.State())
	assert.Equal(t, time.Duration(0), tr.Interval())
	assert.Nil(t, p.Current())
}

func TestProgressPoller_ErrorsKeepPollingWithGrowth(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.pushErr(errors.New("bad gateway"))
	api.pushErr(domain.ErrTransientNetwork)
	api.push(domain.SyncStatusCompleted, 1)
	p, _, clock := newTestPoller(api)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	assert.Equal(t, []time.Duration{ms(2000), ms(2400), ms(2880)}, clock.recorded())
	assert.Equal(t, domain.PollTerminal, tr.State())
}

func TestProgressPoller_FatalErrorsEndTracking(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "session expired", err: domain.ErrSessionExpired},
		{name: "authorization expired", err: domain.ErrAuthorizationExpired},
		{name: "connector gone", err: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newMockIntegrationsAPI()
			api.pushErr(tt.err)
			p, session, _ := newTestPoller(api)
			events := recordEvents(session)

			tr, err := p.StartSync(context.Background(), "c1")
			require.NoError(t, err)
			waitDone(t, tr)

			assert.Equal(t, domain.PollIdle, tr.State())
			assert.ErrorIs(t, tr.Err(), tt.err)
			assert.Equal(t, int32(1), api.polls.Load())
			assert.Nil(t, session.Snapshot().ActiveSync)
			assert.Len(t, events.ofType(domain.EventSyncCleared), 1)
			assert.Nil(t, p.Current())
		})
	}
}

func TestProgressPoller_TerminalLeavesNoError(t *testing.T) {
	api := newMockIntegrationsAPI()
	api.push(domain.SyncStatusCompleted, 3)
	p, _, _ := newTestPoller(api)

	tr, err := p.StartSync(context.Background(), "c1")
	require.NoError(t, err)
	waitDone(t, tr)

	assert.NoError(t, tr.Err())
}

func TestProgressPoller_ContextCancelStopsLoop(t *testing.T) {
	api := newMockIntegrationsAPI()
	p, _, _ := newTestPoller(api)

	ctx, cancel := context.WithCancel(context.Background())
	tr := p.Track(ctx, "c1")
	cancel()
	waitDone(t, tr)
}

func TestNextInterval(t *testing.T) {
	cfg := domain.DefaultPollConfig()

	assert.Equal(t, 2400*time.Millisecond, nextInterval(2*time.Second, cfg))
	assert.Equal(t, 10*time.Second, nextInterval(9*time.Second, cfg))
	assert.Equal(t, 10*time.Second, nextInterval(10*time.Second, cfg))
}
