package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultServerURL = "http://127.0.0.1:37780"
	httpTimeout      = 5 * time.Second
	defaultMaxTries  = 4
)

// errRetry marks a response worth another attempt.
var errRetry = errors.New("server unavailable")

// StatusError is a non-retryable error response from the server.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, bytes.TrimSpace(e.Body))
}

// Client talks to the warmth server. 503 responses and connection failures
// are retried with exponential backoff.
type Client struct {
	http      *http.Client
	serverURL string
	maxTries  uint
	backoff   func() backoff.BackOff
}

// NewClient creates a new hook HTTP client. An empty url falls back to
// WARMTH_URL and then to http://127.0.0.1:37780.
func NewClient(url string) *Client {
	if url == "" {
		url = os.Getenv("WARMTH_URL")
	}
	if url == "" {
		url = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: url,
		maxTries:  defaultMaxTries,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put sends a PUT request with JSON body. Returns response body.
func (c *Client) Put(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	op := func() ([]byte, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, rd)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%s %s: %w", method, path, err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response %s: %w", path, err)
		}
		switch {
		case resp.StatusCode == http.StatusServiceUnavailable:
			return nil, fmt.Errorf("%s %s: %w", method, path, errRetry)
		case resp.StatusCode >= 400:
			return data, backoff.Permanent(&StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: data})
		}
		return data, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backoff()),
		backoff.WithMaxTries(c.maxTries))
}

// Healthy checks if the server is reachable. It does not retry.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
