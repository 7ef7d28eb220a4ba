package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/httpclient"
)

// WebhookTransport POSTs each notification envelope to the endpoint
// registered for its channel, falling back to the default URL.
type WebhookTransport struct {
	source     string
	client     *httpclient.Client
	defaultURL string

	mu        sync.RWMutex
	endpoints map[string]string // channel -> webhook URL
}

func NewWebhookTransport(source, defaultURL string, client *httpclient.Client) *WebhookTransport {
	return &WebhookTransport{
		source:     source,
		client:     client,
		defaultURL: defaultURL,
		endpoints:  make(map[string]string),
	}
}

func (w *WebhookTransport) RegisterEndpoint(channel, webhookURL string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.endpoints[channel] = webhookURL
}

func (w *WebhookTransport) endpointFor(channel string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if u, ok := w.endpoints[channel]; ok {
		return u
	}
	return w.defaultURL
}

func (w *WebhookTransport) Publish(ctx context.Context, channel, topic string, payload map[string]any) error {
	url := w.endpointFor(channel)
	if url == "" {
		return nil
	}

	envelope := newEnvelope(ctx, w.source, channel, topic, payload)
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	resp, err := w.client.PostBytes(ctx, url, body, map[string]string{
		"Content-Type":      "application/json",
		"X-Event-ID":        envelope.EventID,
		"X-Event-Type":      envelope.EventType,
		"X-Event-Channel":   channel,
		"X-Idempotency-Key": envelope.IdempotencyKey,
		"X-Correlation-ID":  envelope.CorrelationID,
	})
	if err != nil {
		return fmt.Errorf("webhook %s: %w", topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook %s: %w", topic, &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	return nil
}
