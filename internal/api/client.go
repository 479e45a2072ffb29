// Package api provides the HTTP transport layer for the SafetyCulture
// REST API: a bearer-token client with retry on transient failures and
// bounded-concurrency admission gates.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.safetyculture.io"

const (
	// maxAttempts bounds the total number of tries per request,
	// including the first one.
	maxAttempts = 4

	// retryAfterCeiling clamps server-directed Retry-After delays so a
	// misbehaving backend can't park a worker for minutes.
	retryAfterCeiling = 60 * time.Second

	// maxErrorBody bounds how much of a failed response body is carried
	// in the error. Full bodies can be arbitrarily large.
	maxErrorBody = 512

	requestTimeout = 120 * time.Second
)

// transientStatuses are response codes worth retrying. Anything else in
// the 4xx range is a permanent failure for that request.
var transientStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed (%d): %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Transient reports whether the status is expected to clear on retry.
func (e *StatusError) Transient() bool {
	return transientStatuses[e.StatusCode]
}

// Client provides authenticated HTTP access to the API. All request
// paths run through the retry policy; callers bound concurrency with a
// Gate, not here.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// sleep is swapped out in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the given base URL and API token.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// url resolves a path against the base URL. Absolute URLs pass through
// unchanged so feed-style "next page" links work directly.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

// newTransientBackoff returns a fresh doubling schedule. BackOff
// implementations are stateful; never share one across requests.
func newTransientBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	return bo
}

// Do executes one API request and returns the response body. Transient
// failures (429, 5xx, connection errors) are retried with exponential
// backoff up to maxAttempts; a Retry-After header on a 429 overrides
// the computed delay, clamped to retryAfterCeiling. Other 4xx statuses
// fail immediately with the response body as detail.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = data
	}

	bo := newTransientBackoff()
	for attempt := 1; ; attempt++ {
		respBody, retryAfter, err := c.doOnce(ctx, method, path, query, payload)
		if err == nil {
			return respBody, nil
		}
		if attempt >= maxAttempts || !isTransient(err) {
			return nil, err
		}
		delay := bo.NextBackOff()
		if retryAfter > 0 {
			delay = retryAfter
			if delay > retryAfterCeiling {
				delay = retryAfterCeiling
			}
		}
		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// doOnce performs a single HTTP exchange. The returned duration is the
// parsed Retry-After value when the response was a 429, zero otherwise.
func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, time.Duration, error) {
	apiURL := c.url(path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(apiURL, "?") {
			sep = "&"
		}
		apiURL += sep + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, apiURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: read response: %w", method, apiURL, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, 0, nil
	}

	statusErr := &StatusError{
		Method:     method,
		URL:        apiURL,
		StatusCode: resp.StatusCode,
		Body:       truncate(string(respBody), maxErrorBody),
	}
	var retryAfter time.Duration
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return nil, retryAfter, statusErr
}

// isTransient reports whether an error should be retried. Connection
// and timeout failures surface as non-StatusError errors and are always
// worth another try.
func isTransient(err error) bool {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Transient()
	}
	return true
}

// parseRetryAfter handles the delay-seconds form of the header. The
// HTTP-date form is rare enough on this backend that it falls back to
// the exponential schedule.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
