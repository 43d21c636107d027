// Package cli implements the brain command line. It is a driving adapter:
// commands call the core through driving ports injected with SetServices.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

// Services holds the core services the commands call.
type Services struct {
	Auth       driving.AuthService
	Connectors driving.ConnectorService
	Sync       driving.SyncTracker
	Chat       driving.ChatService
	Session    driving.SessionObserver
	Config     driven.ConfigStore
}

var (
	authService      driving.AuthService
	connectorService driving.ConnectorService
	syncTracker      driving.SyncTracker
	chatService      driving.ChatService
	sessionObserver  driving.SessionObserver
	configStore      driven.ConfigStore

	version   = "dev"
	verbose   bool
	ephemeral bool
	configDir string

	wire    Wire
	cleanup func()
)

// Options are the root flags that affect wiring.
type Options struct {
	// Ephemeral keeps credentials and transcripts in memory only.
	Ephemeral bool
	// ConfigDir overrides ~/.brain.
	ConfigDir string
}

// Wire builds the services once the root flags are parsed. The returned
// function releases them.
type Wire func(ctx context.Context, opts Options) (Services, func(), error)

var errNotConfigured = errors.New("not configured")

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Terminal client for your 2nd Brain",
	Long: `brain talks to a 2nd Brain knowledge service from the terminal.

Log in once, then sync connectors, watch their progress and chat with
your knowledge base. Expired sessions are renewed transparently.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if wire == nil || cleanup != nil {
			return nil
		}
		svc, release, err := wire(commandContext(cmd), Options{Ephemeral: ephemeral, ConfigDir: configDir})
		if err != nil {
			return err
		}
		SetServices(svc)
		cleanup = release
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep credentials and chat transcripts in memory only")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.brain)")
}

// SetWire installs the function that builds the services before a command runs.
func SetWire(w Wire) {
	wire = w
}

// SetServices injects the core services used by the commands.
func SetServices(s Services) {
	authService = s.Auth
	connectorService = s.Connectors
	syncTracker = s.Sync
	chatService = s.Chat
	sessionObserver = s.Session
	configStore = s.Config
}

// SetVersion sets the version reported by 'brain version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases the wired services.
func Execute(ctx context.Context) error {
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
