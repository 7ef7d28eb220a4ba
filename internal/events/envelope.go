package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps a notification for external consumers.
type Envelope struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type"`
	SchemaVersion  string         `json:"schema_version"`
	IdempotencyKey string         `json:"idempotency_key"`
	Timestamp      time.Time      `json:"timestamp"`
	Source         string         `json:"source"`
	Channel        string         `json:"channel"`
	BatchID        string         `json:"batch_id,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	Data           map[string]any `json:"data"`
}

func newEnvelope(ctx context.Context, source, channel, topic string, payload map[string]any) Envelope {
	env := Envelope{
		CorrelationID: CorrelationID(ctx),
		EventID:       generateEventID(),
		EventType:     topic,
		SchemaVersion: "1.0",
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Channel:       channel,
		Data:          payload,
	}
	// The payload id is derived from the event, so redeliveries of the same
	// triple share an idempotency key.
	if id, ok := payload["id"].(string); ok && id != "" {
		env.IdempotencyKey = fmt.Sprintf("%s_%s_%s", channel, topic, id)
	} else {
		env.IdempotencyKey = fmt.Sprintf("%s_%s_%s", channel, topic, env.EventID)
	}
	if batchID, ok := payload["batchId"].(string); ok {
		env.BatchID = batchID
	}
	return env
}

func generateEventID() string {
	return "evt_" + uuid.NewString()
}
