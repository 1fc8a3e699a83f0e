package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the shared client behind the fan-out pub/sub broker and the
// /healthz probe.
type Redis struct {
	Client *redis.Client
}

// NewRedis dials redis with short timeouts. Fan-out is fire-and-forget,
// so a slow or absent redis must fail fast rather than stall mutations.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy pings redis. A false answer degrades /healthz without failing
// it; the API keeps serving and events fall back to local delivery.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
