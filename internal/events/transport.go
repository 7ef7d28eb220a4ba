package events

import (
	"context"
	"errors"
	"log/slog"
)

// Transport delivers a single notification. Implementations must be safe
// for concurrent use; the dispatcher publishes triples in parallel.
type Transport interface {
	Publish(ctx context.Context, channel, topic string, payload map[string]any) error
}

// LogTransport only records notifications in the structured log.
type LogTransport struct{}

func (LogTransport) Publish(ctx context.Context, channel, topic string, payload map[string]any) error {
	slog.InfoContext(ctx, "notification_logged",
		"channel", channel,
		"topic", topic,
		"batch_id", payload["batchId"],
		"type", payload["type"],
	)
	return nil
}

// MultiTransport publishes to every transport and joins their errors.
type MultiTransport []Transport

func (m MultiTransport) Publish(ctx context.Context, channel, topic string, payload map[string]any) error {
	var errs []error
	for _, t := range m {
		if err := t.Publish(ctx, channel, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
