package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Transport defaults.
const (
	DefaultTimeout = 60 * time.Second
	DefaultRetries = 2
	DefaultBackoff = time.Second

	// maxBodyBytes bounds a single response; a full SAO fetch is a few MB.
	maxBodyBytes = 256 << 20

	userAgent = "xmatch/1.0"
)

// HTTPClient issues GET requests with a per-request timeout and bounded
// retries. Transport errors, 429 and 5xx are retried with exponential
// backoff; other statuses fail immediately.
type HTTPClient struct {
	Service string
	Timeout time.Duration
	Retries int
	Backoff time.Duration

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger

	http *http.Client
}

// NewHTTPClient creates a client for the named service with default settings.
func NewHTTPClient(service string) *HTTPClient {
	return &HTTPClient{
		Service: service,
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
		Backoff: DefaultBackoff,
		Sleep:   SleepContext,
		Logger:  slog.Default(),
		http:    &http.Client{},
	}
}

// Get fetches url and returns the response body.
// All failures are returned as *ServiceError.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	attempts := c.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	lastStatus, tried := 0, 0
	for attempt := 1; attempt <= attempts; attempt++ {
		tried = attempt
		body, status, err := c.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr, lastStatus = err, status

		if !retryable(ctx, status) || attempt == attempts {
			break
		}

		wait := c.Backoff << (attempt - 1)
		c.logger().Debug("retrying catalog request",
			"service", c.Service, "attempt", attempt, "status", status, "wait", wait, "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	return nil, &ServiceError{
		Service:    c.Service,
		StatusCode: lastStatus,
		Attempts:   tried,
		Err:        lastErr,
	}
}

func (c *HTTPClient) do(ctx context.Context, url string) ([]byte, int, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, resp.StatusCode, fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *HTTPClient) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep == nil {
		return SleepContext(ctx, d)
	}
	return c.Sleep(ctx, d)
}

func (c *HTTPClient) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// retryable reports whether a failed attempt should be repeated.
func retryable(ctx context.Context, status int) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case status == 0:
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
