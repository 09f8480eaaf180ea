package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisWindow is a Redis-backed Window, letting multiple replicas of a
// service block share one dedup set. Membership uses SETNX with a TTL
// so the set self-trims without an explicit eviction pass, unlike the
// in-memory FIFO window.
type redisWindow struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisWindow builds a Window backed by a Redis instance at addr.
// ttl bounds how long a correlation ID is remembered.
func NewRedisWindow(addr, prefix string, ttl time.Duration) Window {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisWindow{client: client, ttl: ttl, prefix: prefix}
}

func (w *redisWindow) Seen(correlationID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := w.client.SetNX(ctx, w.prefix+correlationID, 1, w.ttl).Result()
	if err != nil {
		// Redis unreachable or timed out: fail open rather than drop a request
		// we cannot actually prove is a duplicate.
		return false
	}
	return !ok
}

func (w *redisWindow) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := w.client.DBSize(ctx).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
