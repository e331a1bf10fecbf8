package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter implements a fixed window counter in redis so the
// budget is shared across replicas
type DistributedRateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a redis-backed limiter
func NewDistributedRateLimiter(client *redis.Client, config RateLimitConfig) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		redis:  client,
		config: config,
		prefix: "ratelimit:" + config.Name,
	}
}

func (rl *DistributedRateLimiter) Config() RateLimitConfig {
	return rl.config
}

// Allow increments the window counter for key. The first hit of a window
// sets its expiry.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("redis error: %w", err)
	}

	remaining := ttl.Val()
	if incr.Val() == 1 || remaining < 0 {
		if err := rl.redis.PExpire(ctx, redisKey, rl.config.Window).Err(); err != nil {
			return true, 0, fmt.Errorf("redis error: %w", err)
		}
		remaining = rl.config.Window
	}

	if incr.Val() > int64(rl.config.Requests) {
		return false, remaining, nil
	}
	return true, 0, nil
}

// Reset clears the window for key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}
