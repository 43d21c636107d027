package domain

import "time"

// ClientConfig is the resolved configuration of the session client.
type ClientConfig struct {
	// APIBaseURL is the service root including the API prefix,
	// e.g. http://localhost:8000/api/v1.
	APIBaseURL string
	// RequestTimeout bounds every call, including credential renewal.
	RequestTimeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	// Burst is the throttle's bucket size.
	Burst int
	// Poll controls the progress polling interval.
	Poll PollConfig
	// DataDir holds the credential files and the local chat store.
	DataDir string
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIBaseURL:        "http://localhost:8000/api/v1",
		RequestTimeout:    30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
		Poll:              DefaultPollConfig(),
	}
}
