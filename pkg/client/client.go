// Package client queries the status endpoints of a running deadline command.
//
// # Quick start
//
//	c := client.New("http://localhost:9090")
//
//	st, err := c.Status(ctx)
//	if err == nil && !st.Reached {
//	    fmt.Println("remaining:", st.Remaining)
//	}
//
// # Error handling
//
// All methods return an *APIError when the server responds with a non-2xx
// status code. Check errors.As(err, &client.APIError{}) to inspect the HTTP
// status and server message.
//
// Client is safe for concurrent use.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ─── Error type ───────────────────────────────────────────────────────────────

// APIError is returned when the status server responds with a non-2xx status.
type APIError struct {
	StatusCode int    // HTTP status code
	Message    string // "error" field from the JSON response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deadline: server returned %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether the error is a 429 from the server.
func IsRateLimited(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusTooManyRequests
}

// ─── Client options ───────────────────────────────────────────────────────────

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
// The default is 5 seconds.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client talks to one status server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the status server at baseURL.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Status is the wait reported by a running deadline command.
type Status struct {
	At        time.Time
	Remaining time.Duration
	Reached   bool
}

// Health checks the server's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("deadline: unhealthy: %q", resp.Status)
	}
	return nil
}

// Status fetches the current wait from /status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var resp struct {
		AtMs        int64 `json:"at_ms"`
		RemainingMs int64 `json:"remaining_ms"`
		Reached     bool  `json:"reached"`
	}
	if err := c.do(ctx, "/status", &resp); err != nil {
		return nil, err
	}
	return &Status{
		At:        time.UnixMilli(resp.AtMs),
		Remaining: time.Duration(resp.RemainingMs) * time.Millisecond,
		Reached:   resp.Reached,
	}, nil
}

// ─── HTTP transport ───────────────────────────────────────────────────────────

// do performs a single GET and decodes the JSON response into resp.
func (c *Client) do(ctx context.Context, path string, resp any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("deadline: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deadline: request GET %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("deadline: read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		return &APIError{StatusCode: httpResp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, resp); err != nil {
		return fmt.Errorf("deadline: decode response: %w", err)
	}
	return nil
}
