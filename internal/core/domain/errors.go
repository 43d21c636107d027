package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent failures the session client reports to callers.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates the remote service already runs a sync for the connector.
	ErrSyncInProgress = errors.New("sync in progress")

	// Request pipeline errors.

	// ErrTransientNetwork indicates a transport-level failure on a call.
	// It is never retried automatically.
	ErrTransientNetwork = errors.New("network failure")

	// ErrAuthorizationExpired indicates a 401 on a call that was already
	// retried once after a credential renewal.
	ErrAuthorizationExpired = errors.New("authorization expired")

	// ErrSessionExpired indicates the credential renewal failed or no refresh
	// token was available. The stored credentials have been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrStreamDecode indicates a malformed line in a streamed response.
	// It is recovered locally and never returned to callers.
	ErrStreamDecode = errors.New("stream decode anomaly")

	// Authentication errors.

	// ErrNotAuthenticated indicates no credentials are stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials indicates the login was rejected by the service.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// APIError is a non-success response from the remote service.
// Detail carries the service's "detail" field when present.
type APIError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Detail)
}

// IsAPIStatus reports whether err is an APIError with the given status code.
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}
