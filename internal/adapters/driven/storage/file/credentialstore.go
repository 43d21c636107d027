// Package file provides a credential store backed by one file per key in
// the client's data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

const (
	storeDirMode   = 0o700
	secretFileMode = 0o600

	// watchDebounce coalesces the events of one Save or Clear.
	watchDebounce = 100 * time.Millisecond
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps the access and refresh tokens in two files named
// after their logical keys.
type CredentialStore struct {
	root string
	mu   sync.RWMutex

	// written is the pair this store last saved or cleared. The watcher
	// ignores changes that leave the files holding it.
	written domain.CredentialPair
	wrote   bool
}

// NewCredentialStore creates a store rooted at dir.
func NewCredentialStore(dir string) *CredentialStore {
	return &CredentialStore{root: filepath.Clean(dir)}
}

// Dir returns the directory holding the credential files.
func (s *CredentialStore) Dir() string {
	return s.root
}

// Load returns the stored pair. Missing files read as empty tokens.
func (s *CredentialStore) Load(ctx context.Context) (domain.CredentialPair, error) {
	if err := ctx.Err(); err != nil {
		return domain.CredentialPair{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	access, err := s.read(domain.CredentialKeyAccess)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	refresh, err := s.read(domain.CredentialKeyRefresh)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	return domain.CredentialPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Save replaces both files. Each file is written atomically.
func (s *CredentialStore) Save(ctx context.Context, pair domain.CredentialPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, storeDirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	s.written, s.wrote = pair, true
	if err := s.write(domain.CredentialKeyRefresh, pair.RefreshToken); err != nil {
		return err
	}
	return s.write(domain.CredentialKeyAccess, pair.AccessToken)
}

// Clear removes both files. Missing files are not an error.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.written, s.wrote = domain.CredentialPair{}, true
	var errs []error
	for _, key := range []string{domain.CredentialKeyAccess, domain.CredentialKeyRefresh} {
		err := os.Remove(s.path(key))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete credential %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Watch calls onChange after another process changes the credential files,
// until ctx is done. Events of one write are coalesced, and changes that
// leave the files holding what this store last wrote are ignored.
func (s *CredentialStore) Watch(ctx context.Context, onChange func()) error {
	if err := os.MkdirAll(s.root, storeDirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.root); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", s.root, err)
	}

	go s.watch(ctx, watcher, onChange)
	return nil
}

func (s *CredentialStore) watch(ctx context.Context, watcher *fsnotify.Watcher, onChange func()) {
	defer watcher.Close()

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isCredentialFile(event.Name) {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if s.ownWrite(ctx) {
				continue
			}
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Credential watcher error: %v", err)
		}
	}
}

// ownWrite reports whether the files hold the pair this store last wrote.
func (s *CredentialStore) ownWrite(ctx context.Context) bool {
	pair, err := s.Load(ctx)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wrote && pair == s.written
}

func isCredentialFile(name string) bool {
	base := filepath.Base(name)
	return base == domain.CredentialKeyAccess || base == domain.CredentialKeyRefresh
}

func (s *CredentialStore) path(key string) string {
	return filepath.Join(s.root, key)
}

func (s *CredentialStore) read(key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read credential %q: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// write replaces a key through a temporary file and a rename. An empty
// value removes the key.
func (s *CredentialStore) write(key, value string) error {
	target := s.path(key)
	if value == "" {
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete credential %q: %w", key, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(s.root, "."+key+".*")
	if err != nil {
		return fmt.Errorf("write credential %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(secretFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential %q: %w", key, err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credential %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write credential %q: %w", key, err)
	}
	return nil
}
