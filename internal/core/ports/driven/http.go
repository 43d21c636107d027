package driven

import "net/http"

// HTTPDoer sends an HTTP request and returns the response.
// *http.Client satisfies it, and so does the RequestPipeline, which is how
// remote adapters get credential attachment and renewal for free.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
