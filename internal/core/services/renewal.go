package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

// renewalWaiter is a call parked on a 401 until the renewal settles.
type renewalWaiter struct {
	ctx context.Context

	// ready receives exactly one outcome; buffered so the coordinator
	// never blocks on a waiter that already left.
	ready chan renewalOutcome

	// replayed is closed once the waiter's retry has been handed to the
	// transport.
	replayed   chan struct{}
	replayOnce sync.Once
}

type renewalOutcome struct {
	token string
	err   error
}

// release lets the coordinator resume the next waiter in the queue.
func (w *renewalWaiter) release() {
	w.replayOnce.Do(func() { close(w.replayed) })
}

// renewalCoordinator guarantees at most one renewal call in flight and fans
// its result out to every parked call in FIFO order.
type renewalCoordinator struct {
	store   driven.CredentialStore
	renewer driven.TokenRenewer
	session *SessionState

	mu       sync.Mutex
	renewing bool
	queue    []*renewalWaiter
	renewals int

	// expired is set when the last renewal failed and cleared the store.
	expired bool
}

func newRenewalCoordinator(
	store driven.CredentialStore,
	renewer driven.TokenRenewer,
	session *SessionState,
) *renewalCoordinator {
	return &renewalCoordinator{
		store:   store,
		renewer: renewer,
		session: session,
	}
}

func noRelease() {}

// await parks a call that got a 401 for sent until the renewal settles.
// The first caller while idle starts the renewal; later callers join the
// queue. A call whose token was already replaced is resumed at once with
// the stored token. After a failed renewal cleared the store, calls are
// rejected without renewing again.
//
// On success it returns the access token to retry with and a release
// function the caller must invoke once the retry has been dispatched.
func (c *renewalCoordinator) await(ctx context.Context, sent string) (string, func(), error) {
	w := &renewalWaiter{
		ctx:      ctx,
		ready:    make(chan renewalOutcome, 1),
		replayed: make(chan struct{}),
	}

	c.mu.Lock()
	if !c.renewing {
		current, err := c.store.Load(ctx)
		if err != nil {
			c.mu.Unlock()
			return "", nil, fmt.Errorf("load credentials: %w", err)
		}
		if current.AccessToken != "" && current.AccessToken != sent {
			c.mu.Unlock()
			logger.Debug("Access token already renewed, retrying without renewal")
			return current.AccessToken, noRelease, nil
		}
		if c.expired && current.IsZero() {
			c.mu.Unlock()
			return "", nil, fmt.Errorf("%w: credentials were cleared", domain.ErrSessionExpired)
		}
	}
	c.queue = append(c.queue, w)
	if !c.renewing {
		c.renewing = true
		c.renewals++
		// The renewal outlives any single caller's cancellation.
		go c.renew(context.WithoutCancel(ctx))
	}
	c.mu.Unlock()

	select {
	case out := <-w.ready:
		if out.err != nil {
			return "", nil, out.err
		}
		return out.token, w.release, nil
	case <-ctx.Done():
		c.leave(w)
		w.release()
		return "", nil, ctx.Err()
	}
}

// leave removes a cancelled waiter that is still queued.
func (c *renewalCoordinator) leave(w *renewalWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.queue {
		if q == w {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

// renew performs the single renewal call and drains the queue.
func (c *renewalCoordinator) renew(ctx context.Context) {
	logger.Debug("Renewing access token")

	pair, err := c.exchange(ctx)

	c.mu.Lock()
	waiters := c.queue
	c.queue = nil
	if err != nil {
		c.expired = true
		// Clear before going idle so a late 401 sees the cleared store.
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			logger.Error("clear credentials: %v", clearErr)
		}
	} else {
		c.expired = false
	}
	c.renewing = false
	c.mu.Unlock()

	if err != nil {
		c.fail(waiters, err)
		return
	}

	logger.Debug("Access token renewed, replaying %d parked calls", len(waiters))
	for _, w := range waiters {
		w.ready <- renewalOutcome{token: pair.AccessToken}
		select {
		case <-w.replayed:
		case <-w.ctx.Done():
		}
	}
}

// exchange loads the refresh token, calls the renewer and persists the result.
func (c *renewalCoordinator) exchange(ctx context.Context) (domain.CredentialPair, error) {
	current, err := c.store.Load(ctx)
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("%w: load credentials: %w", domain.ErrSessionExpired, err)
	}
	if !current.HasRefreshToken() {
		return domain.CredentialPair{}, fmt.Errorf("%w: no refresh token", domain.ErrSessionExpired)
	}

	pair, err := c.renewer.Renew(ctx, current.RefreshToken)
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	}
	if pair.AccessToken == "" {
		return domain.CredentialPair{}, fmt.Errorf("%w: renewal returned no access token", domain.ErrSessionExpired)
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = current.RefreshToken
	}

	if err := c.store.Save(ctx, pair); err != nil {
		return domain.CredentialPair{}, fmt.Errorf("%w: save credentials: %w", domain.ErrSessionExpired, err)
	}
	return pair, nil
}

// fail signals the expiry once and rejects every waiter. The credentials
// have already been cleared.
func (c *renewalCoordinator) fail(waiters []*renewalWaiter, cause error) {
	logger.Warn("Token renewal failed: %v", cause)

	if c.session != nil {
		c.session.ExpireSession()
	}
	for _, w := range waiters {
		w.ready <- renewalOutcome{err: cause}
	}
}

// pending returns the number of parked calls.
func (c *renewalCoordinator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// count returns how many renewals were started.
func (c *renewalCoordinator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renewals
}
