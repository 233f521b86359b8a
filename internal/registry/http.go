package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Upper bound on bytes drained from a response body before closing it.
const drainLimit = 64 << 10

// Issues a GET request.
//
// Accept values are added in order. The Authorization header is set only
// when token is non-empty. Transport failures are reported as [ErrHTTP].
func send(ctx context.Context, client *http.Client, userAgent, url, token string, accept []string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTP, err)
	}

	for _, a := range accept {
		req.Header.Add("Accept", a)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTP, err)
	}
	return resp, nil
}

// Returns a [StatusError] matching [ErrHTTP] unless the status is 2xx.
func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, URL: url, kind: ErrHTTP}
}

// Drains a bounded amount of the body and closes it so the connection can
// be reused.
func discard(resp *http.Response) {
	io.CopyN(io.Discard, resp.Body, drainLimit)
	resp.Body.Close()
}
