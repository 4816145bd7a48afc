package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/punchamoorthee/checkoutops/internal/obs"
)

// Redis is a fixed-window limiter backed by a shared redis instance, so the
// cap holds across API replicas. The counter key expires with the window;
// redis handles the garbage collection that the in-process limiter does
// lazily.
type Redis struct {
	client *redis.Client
	prefix string
	window time.Duration
	cap    int
}

// NewRedis builds a limiter over an existing client. prefix namespaces the
// keys so several limiters can share one instance.
func NewRedis(client *redis.Client, prefix string, window time.Duration, cap int) *Redis {
	return &Redis{client: client, prefix: prefix, window: window, cap: cap}
}

func (r *Redis) Allow(ctx context.Context, id string) bool {
	key := fmt.Sprintf("%s:%s", r.prefix, id)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		// Fail open: a limiter outage must not take the endpoint down.
		obs.Logger.Warn("rate_limit_redis_error", "key", r.prefix, "error", err.Error())
		return true
	}
	if count == 1 {
		r.client.Expire(ctx, key, r.window)
	}
	return count <= int64(r.cap)
}
