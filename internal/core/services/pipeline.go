package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

// Ensure RequestPipeline implements the interface.
var _ driven.HTTPDoer = (*RequestPipeline)(nil)

// PipelineConfig controls proactive throttling of outgoing calls.
type PipelineConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables throttling.
	RequestsPerSecond float64
	// Burst is the maximum burst size.
	Burst int
}

// RequestPipeline wraps every outgoing call. It attaches the current access
// token, and on a first 401 parks the call until the renewal coordinator
// has obtained a fresh pair, then retries it exactly once.
type RequestPipeline struct {
	doer        driven.HTTPDoer
	store       driven.CredentialStore
	coordinator *renewalCoordinator
	limiter     *rate.Limiter
}

// NewRequestPipeline creates a pipeline sending through doer.
// The renewer must not itself go through the pipeline.
func NewRequestPipeline(
	doer driven.HTTPDoer,
	store driven.CredentialStore,
	renewer driven.TokenRenewer,
	session *SessionState,
	cfg PipelineConfig,
) *RequestPipeline {
	p := &RequestPipeline{
		doer:        doer,
		store:       store,
		coordinator: newRenewalCoordinator(store, renewer, session),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return p
}

// Do sends req with the current access token attached.
//
// Non-401 responses are returned unchanged, whatever their status. Transport
// failures are wrapped in domain.ErrTransientNetwork. A 401 on a retried call
// is reported as domain.ErrAuthorizationExpired, and a failed renewal as
// domain.ErrSessionExpired.
func (p *RequestPipeline) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	pair, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	resp, err := p.dispatch(ctx, req, pair.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	retry, err := replayable(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.Debug("401 on %s %s, waiting for renewal", req.Method, req.URL.Path)
	token, release, err := p.coordinator.await(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err = p.dispatch(ctx, retry, token, release)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, fmt.Errorf("%w: %s %s", domain.ErrAuthorizationExpired, req.Method, req.URL.Path)
	}
	return resp, nil
}

// dispatch sends one attempt of req with token as bearer credential.
// started, when set, is called right before the attempt reaches the doer.
func (p *RequestPipeline) dispatch(
	ctx context.Context,
	req *http.Request,
	token string,
	started func(),
) (*http.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	attempt := req.Clone(ctx)
	if token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	} else {
		attempt.Header.Del("Authorization")
	}

	if started != nil {
		started()
	}
	resp, err := p.doer.Do(attempt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransientNetwork, req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// replayable prepares a copy of req whose body can be sent again.
func replayable(ctx context.Context, req *http.Request) (*http.Request, error) {
	retry := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("%w: %s %s: request body cannot be replayed",
			domain.ErrAuthorizationExpired, req.Method, req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	retry.Body = body
	return retry, nil
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// PendingRenewals returns the number of calls parked on the current renewal.
func (p *RequestPipeline) PendingRenewals() int {
	return p.coordinator.pending()
}

// Renewals returns how many renewal calls the pipeline has started.
func (p *RequestPipeline) Renewals() int {
	return p.coordinator.count()
}
