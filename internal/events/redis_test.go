package events

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisTransport_CloseReleasesClient(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	tr := NewRedisTransport(rdb, "", "nhai-tracker")

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rdb.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want %v", err, redis.ErrClosed)
	}

	var nilTransport *RedisTransport
	if err := nilTransport.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}
