package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

// eventBuffer bounds the events queued between the session state and the
// bubbletea loop.
const eventBuffer = 64

// App is the sync progress view following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles    *styles.Styles
	keys      *keymap.KeyMap
	bar       progress.Model
	statusBar *status.Bar

	// connectorID is the connector being synced. Immutable.
	connectorID string

	// tracking is the current tracking handle, nil until the sync started.
	tracking driving.Tracking

	// resumed is set when the view attached to a sync already running.
	resumed bool

	// latest is the most recent progress observation.
	latest *domain.SyncProgress

	// finished is set once a terminal status was observed.
	finished bool

	// err holds the last error that occurred.
	err error

	showHelp bool
	width    int

	events      chan domain.SessionEvent
	quit        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the sync view for one connector and subscribes it to the
// session state. The sync is started by Init.
func NewApp(ports *Ports, connectorID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if connectorID == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingConnector)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	theme := s.Theme()

	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keys:        km,
		bar:         progress.New(progress.WithGradient(string(theme.GradientStart), string(theme.GradientEnd))),
		statusBar:   status.NewBar(s, km),
		connectorID: connectorID,
		events:      make(chan domain.SessionEvent, eventBuffer),
		quit:        make(chan struct{}),
	}
	a.bar.Width = 40
	a.unsubscribe = ports.Session.Subscribe(a.listen)
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("brain sync "+a.connectorID),
		a.start(),
		a.waitForEvent(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.statusBar.SetWidth(msg.Width)
		a.bar.Width = min(max(msg.Width-12, 10), 60)
		return a, nil

	case tea.KeyMsg:
		switch key := msg.String(); {
		case keymap.Matches(key, a.keys.Quit):
			a.Shutdown()
			return a, tea.Quit
		case keymap.Matches(key, a.keys.Restart):
			a.reset()
			return a, a.start()
		case keymap.Matches(key, a.keys.Help):
			a.showHelp = !a.showHelp
		}
		return a, nil

	case messages.SyncStarted:
		if msg.Err != nil {
			a.fail(msg.Err)
			a.keys.SetFinished(true)
			return a, nil
		}
		a.tracking = msg.Tracking
		a.resumed = msg.Resumed
		if !a.finished {
			a.statusBar.SetState(status.StatePolling)
			a.statusBar.SetInterval(msg.Tracking.Interval())
		}
		return a, a.waitForDone(msg.Tracking)

	case messages.SessionEventReceived:
		a.handleEvent(msg.Event)
		return a, a.waitForEvent()

	case messages.TrackingEnded:
		if msg.Tracking != a.tracking {
			return a, nil
		}
		if msg.Err != nil && !a.finished && a.err == nil {
			a.fail(msg.Err)
			return a, nil
		}
		if !a.finished && a.err == nil {
			a.statusBar.SetState(status.StateStopped)
			a.keys.SetFinished(true)
		}
		return a, nil

	case messages.ErrorOccurred:
		a.fail(msg.Err)
		return a, nil

	case messages.Quit:
		a.Shutdown()
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	title := "Syncing " + a.connectorID
	if a.resumed {
		title += " (attached to running sync)"
	}
	b.WriteString(a.styles.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Panel.Render(a.renderProgress()))
	b.WriteString("\n")

	if a.err != nil {
		b.WriteString(a.styles.Error.Render(errorHint(a.err)))
		b.WriteString("\n")
	}
	if a.showHelp {
		b.WriteString(a.renderHelp())
		b.WriteString("\n")
	}

	b.WriteString(a.statusBar.View())
	return b.String()
}

// Shutdown stops tracking and detaches from the session state.
// Safe to call more than once.
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		close(a.quit)
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		a.ports.Tracker.Stop()
	})
}

// Result returns the last observed progress and the error that ended the
// view, if any.
func (a *App) Result() (*domain.SyncProgress, error) {
	if a.latest == nil {
		return nil, a.err
	}
	p := *a.latest
	return &p, a.err
}

// listen runs on the session state's publishing goroutine.
func (a *App) listen(e domain.SessionEvent) {
	switch e.Type {
	case domain.EventSyncProgress:
		if e.Progress == nil || e.Progress.ConnectorID != a.connectorID {
			return
		}
	case domain.EventSyncCleared:
		if e.ConnectorID != a.connectorID {
			return
		}
	case domain.EventSessionExpired:
	default:
		return
	}

	select {
	case a.events <- e:
	case <-a.quit:
	}
}

func (a *App) start() tea.Cmd {
	ctx := a.ctx
	tracker := a.ports.Tracker
	connectorID := a.connectorID

	return func() tea.Msg {
		tracking, err := tracker.StartSync(ctx, connectorID)
		if errors.Is(err, domain.ErrSyncInProgress) {
			return messages.SyncStarted{Tracking: tracker.Track(ctx, connectorID), Resumed: true}
		}
		return messages.SyncStarted{Tracking: tracking, Err: err}
	}
}

func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-a.events:
			return messages.SessionEventReceived{Event: e}
		case <-a.quit:
			return nil
		}
	}
}

func (a *App) waitForDone(t driving.Tracking) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-t.Done():
			return messages.TrackingEnded{Tracking: t, State: t.State(), Err: t.Err()}
		case <-a.quit:
			return nil
		}
	}
}

func (a *App) handleEvent(e domain.SessionEvent) {
	switch e.Type {
	case domain.EventSyncProgress:
		p := *e.Progress
		a.latest = &p
		if p.Status.IsTerminal() {
			a.finished = true
			a.keys.SetFinished(true)
			a.statusBar.SetState(status.StateFinished)
			return
		}
		if a.tracking != nil {
			a.statusBar.SetInterval(a.tracking.Interval())
		}

	case domain.EventSyncCleared:
		if a.finished || a.err != nil {
			return
		}
		if a.tracking != nil && a.tracking.Err() != nil {
			a.fail(a.tracking.Err())
			return
		}
		a.statusBar.SetState(status.StateStopped)

	case domain.EventSessionExpired:
		a.fail(domain.ErrSessionExpired)
	}
}

func (a *App) fail(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

func (a *App) reset() {
	a.latest = nil
	a.finished = false
	a.err = nil
	a.tracking = nil
	a.resumed = false
	a.keys.SetFinished(false)
	a.statusBar.SetState(status.StateStarting)
	a.statusBar.SetMessage("")
	a.statusBar.SetInterval(0)
}

func (a *App) renderProgress() string {
	if a.latest == nil {
		return a.styles.Muted.Render("Waiting for the first status...")
	}
	p := a.latest

	rows := []string{
		a.bar.ViewAs(Fraction(*p)),
		"",
		a.row("Status", a.styles.Status(p.Status).Render(string(p.Status))),
		a.row("Processed", fmt.Sprintf("%d / %d", p.ProcessedItems, p.TotalItems)),
		a.row("Indexed", fmt.Sprintf("%d", p.IndexedItems)),
	}
	if p.FailedItems > 0 {
		rows = append(rows, a.row("Failed", a.styles.Error.Render(fmt.Sprintf("%d", p.FailedItems))))
	}
	if p.CurrentStep != "" {
		rows = append(rows, a.row("Step", p.CurrentStep))
	}
	if p.ErrorMessage != "" {
		rows = append(rows, a.row("Error", a.styles.Error.Render(p.ErrorMessage)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) row(label, value string) string {
	return a.styles.Label.Render(label) + a.styles.Value.Render(value)
}

func (a *App) renderHelp() string {
	var parts []string
	for _, group := range a.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			parts = append(parts, fmt.Sprintf("%s  %s", h.Key, h.Desc))
		}
	}
	return a.styles.Muted.Render(strings.Join(parts, "\n"))
}

// Fraction returns the completion of p in [0, 1]. The service's percentage
// is preferred; item counts are used when it reports none.
func Fraction(p domain.SyncProgress) float64 {
	pct := p.Percent
	if pct <= 0 && p.TotalItems > 0 {
		pct = float64(p.ProcessedItems) / float64(p.TotalItems) * 100
	}
	return min(max(pct/100, 0), 1)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return "Session expired. Run 'brain login' and try again."
	case errors.Is(err, domain.ErrNotFound):
		return "Connector not found. Run 'brain connectors' to list connectors."
	default:
		return err.Error()
	}
}
