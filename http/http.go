// Package http provides HTTP implementations of the collaborators a funded
// wallet talks to: the satoshi purchase service, the message relay that
// carries payment tokens, the wallet substrate itself, and a gin bridge that
// lets a browser render the funding dialogs.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ============================================================================
// Shared Transport
// ============================================================================

// AuthProvider generates authentication headers for outgoing requests
type AuthProvider interface {
	// GetAuthHeaders returns headers to add to a request for path
	GetAuthHeaders(ctx context.Context, path string) (map[string]string, error)
}

// DefaultTimeout applies when no HTTP client is supplied
const DefaultTimeout = 30 * time.Second

// rateLimitRetries is the number of attempts made on 429 responses by
// clients that retry
const rateLimitRetries = 3

// rateLimitBaseDelay is the base delay for exponential backoff on 429 responses
const rateLimitBaseDelay = 1 * time.Second

// StatusError is returned for non-2xx responses
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Path, e.StatusCode, e.Body)
}

// RequestError is returned when a request never produced a response
type RequestError struct {
	Path string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// transport is the JSON-over-HTTP plumbing shared by every client
type transport struct {
	url          string
	httpClient   *http.Client
	authProvider AuthProvider
	retryDelay   time.Duration

	// attempts bounds the tries per request; 1 disables the 429 backoff
	attempts int
}

func newTransport(url, defaultURL string, httpClient *http.Client, timeout time.Duration, auth AuthProvider) *transport {
	if url == "" {
		url = defaultURL
	}
	url = strings.TrimRight(url, "/")

	if httpClient == nil {
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &transport{
		url:          url,
		httpClient:   httpClient,
		authProvider: auth,
		retryDelay:   rateLimitBaseDelay,
		attempts:     rateLimitRetries,
	}
}

// postJSON posts body to path and returns the raw response body. Requests
// rejected with 429 are retried with exponential backoff while attempts
// remain. On other non-2xx
// responses the body is returned alongside a *StatusError.
func (t *transport) postJSON(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	var lastErr error
	for attempt := range t.attempts {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", path, err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		// Add auth headers if available
		if t.authProvider != nil {
			authHeaders, err := t.authProvider.GetAuthHeaders(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("failed to get auth headers: %w", err)
			}
			for k, v := range authHeaders {
				req.Header.Set(k, v)
			}
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &RequestError{Path: path, Err: err}
		}

		responseBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return responseBody, nil
		}

		lastErr = &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(responseBody)}

		// Retry on 429 with exponential backoff, except on the last attempt
		if resp.StatusCode == http.StatusTooManyRequests && attempt < t.attempts-1 {
			delay := t.retryDelay * time.Duration(1<<uint(attempt))
			log.Debugf("%s rate limited, retrying in %v", path, delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return responseBody, lastErr
	}

	return nil, lastErr
}
