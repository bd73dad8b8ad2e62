package domain

import "context"

// HTTPClient performs one outbound GET. Non-2xx statuses are returned as a
// response, not as an error; only transport problems are errors.
type HTTPClient interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*UpstreamResponse, error)
}

// TokenExtractor finds the confirmation token in a warning page.
type TokenExtractor interface {
	Extract(body []byte) (ConfirmationToken, bool)
}
