package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	configfile "github.com/custodia-labs/secondbrain-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driven/remote"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/secondbrain-cli/internal/config"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/core/services"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

const (
	credentialsDir = "credentials"
	databaseDir    = "data"
)

// wire builds the adapters and services for one command invocation.
func wire(ctx context.Context, opts cli.Options) (cli.Services, func(), error) {
	dir := opts.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return cli.Services{}, nil, err
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	configStore, err := configfile.NewConfigStore(dir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("open configuration: %w", err)
	}
	logger.Debug("Using API %s, data in %s", cfg.APIBaseURL, cfg.DataDir)

	session := services.NewSessionState()
	watchCtx, cancelWatch := context.WithCancel(ctx)
	var closers []func() error
	release := func() {
		cancelWatch()
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Closing store: %v", err)
			}
		}
	}

	var (
		credentials driven.CredentialStore
		chatStore   driven.ChatStore
		fileCreds   *file.CredentialStore
	)
	if opts.Ephemeral {
		credentials = memory.NewCredentialStore()
		chatStore = memory.NewChatStore()
	} else {
		fileCreds = file.NewCredentialStore(filepath.Join(cfg.DataDir, credentialsDir))
		credentials = fileCreds

		db, err := sqlite.NewStore(filepath.Join(cfg.DataDir, databaseDir))
		if err != nil {
			release()
			return cli.Services{}, nil, fmt.Errorf("open local store: %w", err)
		}
		closers = append(closers, db.Close)
		chatStore = db.ChatStore()
	}

	plain := remote.NewHTTPClient(cfg.RequestTimeout)
	timeout := remote.WithTimeout(cfg.RequestTimeout)
	renewer := remote.NewAuthClient(remote.NewClient(cfg.APIBaseURL, plain, timeout), plain)
	pipeline := services.NewRequestPipeline(plain, credentials, renewer, session, services.PipelineConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})

	api := remote.NewClient(cfg.APIBaseURL, pipeline, timeout)
	integrations := remote.NewIntegrationsClient(api)
	authService := services.NewAuthService(remote.NewAuthClient(api, plain), credentials, session)

	if fileCreds != nil {
		onChange := resyncSession(watchCtx, credentials, authService, session)
		if err := fileCreds.Watch(watchCtx, onChange); err != nil {
			logger.Debug("Not watching credentials: %v", err)
		}
	}

	return cli.Services{
		Auth:       authService,
		Connectors: services.NewConnectorService(integrations),
		Sync:       services.NewProgressPoller(integrations, session, cfg.Poll),
		Chat:       services.NewChatService(remote.NewChatClient(api), chatStore, session),
		Session:    session,
		Config:     configStore,
	}, release, nil
}

// resyncSession returns a callback that brings the session in line with
// the stored credentials after another process changed them.
func resyncSession(
	ctx context.Context,
	store driven.CredentialStore,
	auth *services.AuthService,
	session *services.SessionState,
) func() {
	return func() {
		pair, err := store.Load(ctx)
		if err != nil {
			logger.Warn("Reading changed credentials: %v", err)
			return
		}
		if pair.IsZero() {
			if session.IsAuthenticated() {
				logger.Info("Logged out by another process")
				session.SetLoggedOut()
			}
			return
		}
		if session.IsAuthenticated() {
			return
		}
		if _, err := auth.Restore(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("Restoring changed credentials: %v", err)
		}
	}
}
