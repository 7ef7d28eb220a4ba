package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
)

const publishTimeout = 5 * time.Second

// Dispatcher turns committed events into notifications and publishes them.
// Delivery failures are logged and never reported to the caller: by the time
// Dispatch runs the mutation is already durable.
type Dispatcher struct {
	transport Transport
}

func NewDispatcher(t Transport) *Dispatcher {
	if t == nil {
		t = LogTransport{}
	}
	return &Dispatcher{transport: t}
}

// Dispatch publishes every notification of evs concurrently and waits for
// all of them. It returns the triples that were attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, evs ...Event) []Notification {
	var all []Notification
	for _, ev := range evs {
		all = append(all, Fanout(ev)...)
	}
	if len(all) == 0 {
		return nil
	}

	// Publishing outlives a cancelled request; the write it reports on has
	// already happened.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, n := range all {
		wg.Add(1)
		go func(n Notification) {
			defer wg.Done()
			if err := d.transport.Publish(pubCtx, n.Channel, n.Topic, n.Payload); err != nil {
				slog.WarnContext(ctx, "notification_publish_failed",
					"correlation_id", CorrelationID(ctx),
					"channel", n.Channel,
					"topic", n.Topic,
					"error", apperr.Transport(err),
				)
				return
			}
			slog.DebugContext(ctx, "notification_published",
				"channel", n.Channel,
				"topic", n.Topic,
			)
		}(n)
	}
	wg.Wait()
	return all
}
