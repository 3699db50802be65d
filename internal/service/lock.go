package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepLocker serializes sweep executions. The lease is held for the sweep's
// lifetime and expires on its own if the holder dies, so a crashed sweep can
// never wedge the schedule.
type SweepLocker interface {
	// Acquire takes the named lease; returns false when another sweep holds it
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release gives the lease back early
	Release(ctx context.Context, name string) error
}

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker builds a SweepLocker over a shared Redis, which makes the
// guard hold across a multi-instance deployment, not just one process.
func NewRedisLocker(client *redis.Client) SweepLocker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "emi:sweep:"+name, "1", ttl).Result()
}

func (l *redisLocker) Release(ctx context.Context, name string) error {
	return l.client.Del(ctx, "emi:sweep:"+name).Err()
}
