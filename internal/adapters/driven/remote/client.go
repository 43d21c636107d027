// Package remote provides adapters for the knowledge service's HTTP API.
//
// Calls that need a bearer token go through a driven.HTTPDoer, normally the
// request pipeline. The token endpoints use a plain *http.Client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client sends JSON requests to the service.
type Client struct {
	baseURL string
	doer    driven.HTTPDoer
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every call that reads a complete response. Streamed
// answers are not bounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for baseURL sending through doer.
func NewClient(baseURL string, doer driven.HTTPDoer, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns the transport used for every call. timeout bounds
// connecting and waiting for response headers but not reading the body, so
// a streamed answer may take longer than timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// newRequest builds a request with an optional JSON body. The body is
// replayable, so the pipeline can retry it after a renewal.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON response into out. out may be nil.
func (c *Client) do(req *http.Request, out any) error {
	return c.call(c.doer, req, out)
}

// call applies the call deadline and sends req through doer.
func (c *Client) call(doer driven.HTTPDoer, req *http.Request, out any) error {
	ctx, cancel := c.bound(req.Context())
	defer cancel()
	return send(doer, req.WithContext(ctx), out)
}

// bound returns ctx limited by the call timeout, if one is set.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// send is shared by the authenticated client and the token endpoints.
func send(doer driven.HTTPDoer, req *http.Request, out any) error {
	resp, err := doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns an error response into a *domain.APIError, extracting
// the "detail" field when the body is a JSON object.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &domain.APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			apiErr.Detail = text
		} else {
			// Validation errors carry a list of objects.
			apiErr.Detail = string(payload.Detail)
		}
		return apiErr
	}

	apiErr.Detail = strings.TrimSpace(string(body))
	return apiErr
}
