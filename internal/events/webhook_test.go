package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/httpclient"
)

func testClient() *httpclient.Client {
	cfg := httpclient.DefaultRetryConfig()
	cfg.MaxRetries = 0
	return httpclient.NewClientWithRetry("test-service", time.Second, cfg)
}

func TestWebhookTransport_Publish(t *testing.T) {
	var (
		mu       sync.Mutex
		envelope Envelope
		headers  http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &envelope)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wt := NewWebhookTransport("test-service", "", testClient())
	wt.RegisterEndpoint(ChannelAdmin, server.URL)

	n := Fanout(sampleEvent(KindAgencyPayment))[0]
	ctx := WithCorrelationID(context.Background(), "req-42")
	if err := wt.Publish(ctx, n.Channel, n.Topic, n.Payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if headers.Get("Content-Type") != "application/json" {
		t.Error("missing Content-Type header")
	}
	if headers.Get("X-Event-Type") != "agency-payment-received" {
		t.Errorf("X-Event-Type = %q", headers.Get("X-Event-Type"))
	}
	if headers.Get("X-Event-ID") == "" || headers.Get("X-Event-ID") != envelope.EventID {
		t.Errorf("X-Event-ID = %q, envelope id = %q", headers.Get("X-Event-ID"), envelope.EventID)
	}
	if envelope.SchemaVersion != "1.0" || envelope.Source != "test-service" || envelope.Channel != ChannelAdmin {
		t.Errorf("envelope = %+v", envelope)
	}
	if headers.Get("X-Correlation-ID") != "req-42" || envelope.CorrelationID != "req-42" {
		t.Errorf("correlation header = %q, envelope = %q", headers.Get("X-Correlation-ID"), envelope.CorrelationID)
	}
	if envelope.Data["transactionId"] != "tx-1" {
		t.Errorf("envelope data = %v", envelope.Data)
	}
}

func TestWebhookTransport_NoEndpoint(t *testing.T) {
	wt := NewWebhookTransport("test-service", "", testClient())
	if err := wt.Publish(context.Background(), ChannelAgency, "work-progress-ag1", map[string]any{}); err != nil {
		t.Errorf("Publish() without endpoint error = %v", err)
	}
}

func TestWebhookTransport_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wt := NewWebhookTransport("test-service", server.URL, testClient())
	if err := wt.Publish(context.Background(), ChannelAdmin, "work-completed", map[string]any{}); err == nil {
		t.Error("Publish() should report a 5xx response")
	}
}

func TestNewEnvelope_IdempotencyKey(t *testing.T) {
	payload := map[string]any{"id": "work-approval-b1-1706781600000", "batchId": "b1"}
	a := newEnvelope(context.Background(), "svc", ChannelAdmin, "work-approved", payload)
	b := newEnvelope(context.Background(), "svc", ChannelAdmin, "work-approved", payload)

	if a.EventID == b.EventID {
		t.Error("event ids should be unique per envelope")
	}
	if a.IdempotencyKey != b.IdempotencyKey {
		t.Errorf("idempotency keys differ: %q vs %q", a.IdempotencyKey, b.IdempotencyKey)
	}
	if a.BatchID != "b1" {
		t.Errorf("BatchID = %q, want b1", a.BatchID)
	}
	if a.CorrelationID != "" {
		t.Errorf("CorrelationID = %q, want empty without a request", a.CorrelationID)
	}
}
