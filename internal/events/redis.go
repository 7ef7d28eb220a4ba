package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes to "<prefix>:<channel>" so realtime gateways can
// subscribe per stakeholder channel and route on topic.
type RedisTransport struct {
	rdb    redis.UniversalClient
	prefix string
	source string
}

type redisMessage struct {
	Topic    string         `json:"topic"`
	Payload  map[string]any `json:"payload"`
	Envelope Envelope       `json:"envelope"`
}

func NewRedisTransport(rdb redis.UniversalClient, prefix, source string) *RedisTransport {
	if prefix == "" {
		prefix = "nhai"
	}
	return &RedisTransport{rdb: rdb, prefix: prefix, source: source}
}

func (t *RedisTransport) key(channel string) string {
	return t.prefix + ":" + channel
}

func (t *RedisTransport) Publish(ctx context.Context, channel, topic string, payload map[string]any) error {
	if t == nil || t.rdb == nil {
		return fmt.Errorf("redis transport not initialized")
	}
	raw, err := json.Marshal(redisMessage{
		Topic:    topic,
		Payload:  payload,
		Envelope: newEnvelope(ctx, t.source, channel, topic, payload),
	})
	if err != nil {
		return err
	}
	return t.rdb.Publish(ctx, t.key(channel), raw).Err()
}

// Subscribe forwards messages published on the given channels until ctx ends.
func (t *RedisTransport) Subscribe(ctx context.Context, onMsg func(channel string, n Notification), channels ...string) error {
	keys := make([]string, len(channels))
	for i, c := range channels {
		keys[i] = t.key(c)
	}
	sub := t.rdb.Subscribe(ctx, keys...)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg redisMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					slog.WarnContext(ctx, "redis_notification_decode_failed", "channel", m.Channel, "error", err)
					continue
				}
				channel := strings.TrimPrefix(m.Channel, t.prefix+":")
				onMsg(channel, Notification{Channel: channel, Topic: msg.Topic, Payload: msg.Payload})
			}
		}
	}()
	return nil
}

func (t *RedisTransport) Close() error {
	if t == nil || t.rdb == nil {
		return nil
	}
	return t.rdb.Close()
}
