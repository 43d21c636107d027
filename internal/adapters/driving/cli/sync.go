package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync <connector-id>",
	Short: "Sync a connector and follow its progress",
	Long: `Starts a sync of the given connector on the service and follows its
progress until it completes or fails. The status is checked every 2 seconds
at first, backing off to every 10 seconds for long-running syncs.

When a sync is already running on the service, brain follows it instead.
Quitting stops following; the sync itself keeps running on the service.

Examples:
  brain sync 3f1c...          # interactive progress view
  brain sync 3f1c... --plain  # line-by-line output
  brain sync 3f1c... --attach # follow a running sync without starting one`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

// Flags for sync.
var (
	syncPlain  bool
	syncAttach bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncPlain, "plain", false, "Print progress lines instead of the interactive view")
	syncCmd.Flags().BoolVar(&syncAttach, "attach", false, "Follow a running sync without starting one")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncTracker == nil || sessionObserver == nil || authService == nil {
		return fmt.Errorf("sync service %w", errNotConfigured)
	}

	if _, err := restoreSession(cmd); err != nil {
		return err
	}

	connectorID := args[0]
	if !syncPlain && !syncAttach && isTerminal(cmd.OutOrStdout()) {
		return runSyncTUI(cmd, connectorID)
	}
	return runSyncPlain(cmd, connectorID)
}

func runSyncTUI(cmd *cobra.Command, connectorID string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	ctx := commandContext(cmd)
	app, err := tui.NewApp(tui.NewPorts(syncTracker, sessionObserver), connectorID)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)
	defer app.Shutdown()

	p := tea.NewProgram(app, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	latest, err := app.Result()
	if err != nil {
		return syncError(err)
	}
	if latest != nil {
		printSummary(cmd, *latest)
		return outcome(*latest)
	}
	return nil
}

func runSyncPlain(cmd *cobra.Command, connectorID string) error {
	ctx := commandContext(cmd)

	events := make(chan domain.SessionEvent, 64)
	done := make(chan struct{})
	unsubscribe := sessionObserver.Subscribe(func(e domain.SessionEvent) {
		if !relevant(e, connectorID) {
			return
		}
		select {
		case events <- e:
		case <-done:
		}
	})

	tracking, err := startTracking(ctx, cmd, connectorID)
	defer func() {
		// Unblock the listener before Stop publishes the cleared event.
		close(done)
		if tracking != nil {
			syncTracker.Stop()
		}
		unsubscribe()
	}()
	if err != nil {
		return syncError(err)
	}

	printer := &progressPrinter{out: cmd.OutOrStdout()}
	for {
		select {
		case e := <-events:
			if finished, err := handleSyncEvent(cmd, printer, tracking, e); finished {
				return err
			}

		case <-tracking.Done():
			// Events published before the tracking ended are still queued.
			for {
				select {
				case e := <-events:
					if finished, err := handleSyncEvent(cmd, printer, tracking, e); finished {
						return err
					}
				default:
					if err := tracking.Err(); err != nil {
						return syncError(err)
					}
					cmd.Println("Stopped following the sync.")
					return nil
				}
			}

		case <-ctx.Done():
			cmd.Println("Stopped following; the sync continues on the service.")
			return nil
		}
	}
}

// startTracking starts the sync, or attaches to one already running.
func startTracking(ctx context.Context, cmd *cobra.Command, connectorID string) (driving.Tracking, error) {
	if syncAttach {
		cmd.Printf("Following sync of %s...\n", connectorID)
		return syncTracker.Track(ctx, connectorID), nil
	}

	tracking, err := syncTracker.StartSync(ctx, connectorID)
	if errors.Is(err, domain.ErrSyncInProgress) {
		cmd.Printf("A sync of %s is already running, following it...\n", connectorID)
		return syncTracker.Track(ctx, connectorID), nil
	}
	if err != nil {
		return nil, err
	}
	cmd.Printf("Synchronising %s...\n", connectorID)
	return tracking, nil
}

// handleSyncEvent prints e and reports whether following is over.
func handleSyncEvent(
	cmd *cobra.Command,
	printer *progressPrinter,
	tracking driving.Tracking,
	e domain.SessionEvent,
) (bool, error) {
	switch e.Type {
	case domain.EventSyncProgress:
		printer.print(*e.Progress)
		if e.Progress.Status.IsTerminal() {
			printSummary(cmd, *e.Progress)
			return true, outcome(*e.Progress)
		}
	case domain.EventSyncCleared:
		if err := tracking.Err(); err != nil {
			return true, syncError(err)
		}
		cmd.Println("Stopped following the sync.")
		return true, nil
	case domain.EventSessionExpired:
		return true, syncError(domain.ErrSessionExpired)
	}
	return false, nil
}

func relevant(e domain.SessionEvent, connectorID string) bool {
	switch e.Type {
	case domain.EventSyncProgress:
		return e.Progress != nil && e.Progress.ConnectorID == connectorID
	case domain.EventSyncCleared:
		return e.ConnectorID == connectorID
	case domain.EventSessionExpired:
		return true
	default:
		return false
	}
}

// progressPrinter prints one line per change of the observed progress.
type progressPrinter struct {
	out  io.Writer
	last *domain.SyncProgress
}

func (p *progressPrinter) print(progress domain.SyncProgress) {
	if p.last != nil &&
		p.last.Status == progress.Status &&
		p.last.ProcessedItems == progress.ProcessedItems &&
		p.last.CurrentStep == progress.CurrentStep {
		return
	}
	p.last = &progress

	line := fmt.Sprintf("[%s] %d/%d items (%.0f%%)",
		progress.Status, progress.ProcessedItems, progress.TotalItems, tui.Fraction(progress)*100)
	if progress.CurrentStep != "" {
		line += " - " + progress.CurrentStep
	}
	fmt.Fprintln(p.out, line)
}

func printSummary(cmd *cobra.Command, p domain.SyncProgress) {
	switch p.Status {
	case domain.SyncStatusCompleted:
		cmd.Printf("Sync completed: %d items processed, %d indexed, %d failed.\n",
			p.ProcessedItems, p.IndexedItems, p.FailedItems)
	case domain.SyncStatusFailed:
		cmd.Printf("Sync failed after %d items.\n", p.ProcessedItems)
	}
}

// outcome maps a final progress to the command's result.
func outcome(p domain.SyncProgress) error {
	if p.Status != domain.SyncStatusFailed {
		return nil
	}
	if p.ErrorMessage != "" {
		return fmt.Errorf("sync failed: %s", p.ErrorMessage)
	}
	return errors.New("sync failed")
}

func syncError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return errors.New("session expired, run 'brain login' and try again")
	case errors.Is(err, domain.ErrAuthorizationExpired):
		return errors.New("not authorized, run 'brain login' and try again")
	case errors.Is(err, domain.ErrNotFound):
		return errors.New("connector not found, run 'brain connectors' to list connectors")
	default:
		return fmt.Errorf("sync failed: %w", err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
