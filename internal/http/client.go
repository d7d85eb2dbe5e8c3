package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// Client wraps HTTP operations for the catalog and object storage.
//
// Client provides:
//   - Configured User-Agent header
//   - Timeout handling
//   - GET downloads returned as in-memory bytes
//   - Form POSTs for the export download endpoint
//
// Example usage:
//
//	client := NewClient()
//
//	// Download a payload
//	data, err := client.Get(ctx, "https://storage.example.com/128477/model.bin")
//
//	// Decode a JSON endpoint
//	var detail dto.JSONDetail
//	err = client.GetJSON(ctx, "https://nizima.com/api/items/128477/detail", &detail)
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 300 second timeout (package archives can be large)
//   - "nizima-downloader" User-Agent header
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		userAgent: "nizima-downloader",
	}
}

// StatusError is returned for any non-2xx response. The status code drives
// the retry classification: 5xx is transient, 401/403 and 404/410 are not.
type StatusError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Status is the full status line, e.g. "404 Not Found".
	Status string

	// URL is the request URL, kept for failure log entries.
	URL string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Get performs a GET request and returns the response body as bytes.
//
// The request includes the configured User-Agent header.
//
// Returns a *StatusError if the response status is not 2xx.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	data, _, err := c.get(ctx, rawURL)
	return data, err
}

// GetJSON performs a GET request and decodes the JSON response into v.
//
// A response whose Content-Type is not application/json is rejected even
// when the status is 200; the catalog answers unknown item ids with an
// HTML page.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) ([]byte, error) {
	data, contentType, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(contentType, "application/json") {
		return nil, fmt.Errorf("expected JSON response from %s, got content type %q", rawURL, contentType)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from %s: %w", rawURL, err)
	}

	return data, nil
}

// PostForm performs a POST with a urlencoded form body and returns the
// response body and its Content-Type.
//
// The content type is surfaced so callers can detect non-JSON answers;
// the export endpoint replies with an HTML login page when the session
// is not authenticated.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        req.URL.String(),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// IsTransient reports whether err is worth retrying: timeouts, connection
// resets, unexpected EOFs and 5xx responses. Context cancellation is never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsNotFound reports whether err is a definitive 404 or 410 response,
// which switches a task to its fallback URL or terminates it.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusNotFound ||
			statusErr.StatusCode == http.StatusGone
	}
	return false
}

// IsDenied reports whether err is an authorization or permission refusal.
func IsDenied(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized ||
			statusErr.StatusCode == http.StatusForbidden
	}
	return false
}
