package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Client posts notification payloads to webhook receivers, retrying
// transient failures with capped exponential backoff.
type Client struct {
	httpClient  *http.Client
	retryConfig RetryConfig
	serviceName string
	auth        AuthProvider
}

type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RetryableStatuses []int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		RetryableStatuses: []int{
			http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func NewClient(serviceName string, timeout time.Duration) *Client {
	return NewClientWithRetry(serviceName, timeout, DefaultRetryConfig())
}

func NewClientWithRetry(serviceName string, timeout time.Duration, retryConfig RetryConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retryConfig,
		serviceName: serviceName,
	}
}

// WithAuth returns a copy of c that applies auth to every request.
func (c *Client) WithAuth(auth AuthProvider) *Client {
	cp := *c
	cp.auth = auth
	return &cp
}

// PostBytes delivers body to url. The same bytes are replayed on every
// attempt. A Retry-After header on a retryable response overrides the
// computed backoff, bounded by MaxBackoff.
func (c *Client) PostBytes(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error
	wait := c.retryConfig.InitialBackoff

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.DebugContext(ctx, "webhook_retry",
				"service", c.serviceName,
				"attempt", attempt,
				"url", url,
				"wait", wait,
			)
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
			wait = c.nextBackoff(wait)
		}

		resp, err := c.send(ctx, url, body, headers)
		if err != nil {
			lastErr = err
			continue
		}
		if !c.retryable(resp.StatusCode) {
			return resp, nil
		}
		if d, ok := retryAfter(resp.Header); ok {
			wait = min(d, c.retryConfig.MaxBackoff)
		}
		resp.Body.Close()
		lastErr = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return nil, fmt.Errorf("max retries exceeded for %s: %w", url, lastErr)
}

func (c *Client) send(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return nil, fmt.Errorf("apply auth: %w", err)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) nextBackoff(d time.Duration) time.Duration {
	return min(d*2, c.retryConfig.MaxBackoff)
}

func (c *Client) retryable(status int) bool {
	for _, s := range c.retryConfig.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// retryAfter reads a delay-seconds Retry-After value. HTTP-date values are
// ignored.
func retryAfter(h http.Header) (time.Duration, bool) {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// HTTPError is a non-success webhook response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
