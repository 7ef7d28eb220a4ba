package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-service", 10*time.Second)

	if client.serviceName != "test-service" {
		t.Errorf("NewClient() serviceName = %v, want test-service", client.serviceName)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("NewClient() timeout = %v, want %v", client.httpClient.Timeout, 10*time.Second)
	}
}

func TestPostBytes_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	var lastBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClientWithRetry("test", time.Second, fastRetry())
	resp, err := client.PostBytes(context.Background(), server.URL, []byte(`{"a":1}`), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		t.Fatalf("PostBytes() error = %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if lastBody != `{"a":1}` {
		t.Errorf("body on final attempt = %q", lastBody)
	}
}

func TestPostBytes_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithRetry("test", time.Second, fastRetry())
	_, err := client.PostBytes(context.Background(), server.URL, nil, nil)
	if err == nil {
		t.Fatal("PostBytes() expected error")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Errorf("PostBytes() error = %v, want wrapped HTTPError 502", err)
	}
}

func TestPostBytes_NonRetryableReturned(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClientWithRetry("test", time.Second, fastRetry())
	resp, err := client.PostBytes(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("PostBytes() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	base := NewClient("test", time.Second)
	client := base.WithAuth(&BearerTokenAuth{Token: "secret"})
	resp, err := client.PostBytes(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
	if base.auth != nil {
		t.Error("WithAuth() mutated the receiver")
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Status: "404 Not Found"}
	if err.Error() != "HTTP 404: 404 Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}
	err.Body = []byte("missing")
	if err.Error() != "HTTP 404: missing" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestPostBytes_HonoursRetryAfter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := fastRetry()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	client := NewClientWithRetry("test", time.Second, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.PostBytes(ctx, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("PostBytes() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"3", 3 * time.Second, true},
		{"0", 0, true},
		{"", 0, false},
		{"-1", 0, false},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0, false},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		got, ok := retryAfter(h)
		if got != tt.want || ok != tt.ok {
			t.Errorf("retryAfter(%q) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Webhook-Key")
	}))
	defer server.Close()

	client := NewClient("test", time.Second).WithAuth(&APIKeyAuth{Header: "X-Webhook-Key", Key: "k1"})
	resp, err := client.PostBytes(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got != "k1" {
		t.Errorf("X-Webhook-Key = %q, want k1", got)
	}
}
