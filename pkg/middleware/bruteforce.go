package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/observability"
)

// FailureCounter counts failed logins per key within a TTL window
type FailureCounter interface {
	Failures(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// MemoryFailureCounter keeps counts in an expiring LRU. Each failure
// extends the window of its key.
type MemoryFailureCounter struct {
	mu     sync.Mutex
	counts *lru.LRU[string, int]
}

// NewMemoryFailureCounter creates an in-process counter
func NewMemoryFailureCounter(size int, window time.Duration) *MemoryFailureCounter {
	if size <= 0 {
		size = 100000
	}
	return &MemoryFailureCounter{counts: lru.NewLRU[string, int](size, nil, window)}
}

func (c *MemoryFailureCounter) Failures(_ context.Context, key string) (int, error) {
	n, _ := c.counts.Get(key)
	return n, nil
}

func (c *MemoryFailureCounter) RecordFailure(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts.Get(key)
	if !ok {
		c.counts.Add(key, 1)
		return 1, nil
	}
	n++
	c.counts.Add(key, n)
	return n, nil
}

func (c *MemoryFailureCounter) Reset(_ context.Context, key string) error {
	c.counts.Remove(key)
	return nil
}

// RedisFailureCounter stores counts as expiring redis keys
type RedisFailureCounter struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisFailureCounter creates a counter shared across replicas
func NewRedisFailureCounter(client *redis.Client, window time.Duration) *RedisFailureCounter {
	return &RedisFailureCounter{client: client, window: window, prefix: "bruteforce"}
}

func (c *RedisFailureCounter) key(k string) string {
	return c.prefix + ":" + k
}

func (c *RedisFailureCounter) Failures(ctx context.Context, key string) (int, error) {
	n, err := c.client.Get(ctx, c.key(key)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read failure count: %w", err)
	}
	return n, nil
}

func (c *RedisFailureCounter) RecordFailure(ctx context.Context, key string) (int, error) {
	n, err := c.client.Incr(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to record failure: %w", err)
	}
	if n == 1 {
		if err := c.client.Expire(ctx, c.key(key), c.window).Err(); err != nil {
			return int(n), fmt.Errorf("failed to set failure window: %w", err)
		}
	}
	return int(n), nil
}

func (c *RedisFailureCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// BruteForceGuard blocks a client address after too many failed logins
type BruteForceGuard struct {
	counter     FailureCounter
	maxFailures int
	window      time.Duration
	metrics     *observability.Metrics
}

// NewBruteForceGuard creates a guard allowing maxFailures per window
func NewBruteForceGuard(counter FailureCounter, maxFailures int, window time.Duration, metrics *observability.Metrics) *BruteForceGuard {
	return &BruteForceGuard{counter: counter, maxFailures: maxFailures, window: window, metrics: metrics}
}

func failureKey(r *http.Request) string {
	return "ip:" + httputil.ClientIP(r)
}

// Handler rejects requests from a locked-out address before the handler runs
func (g *BruteForceGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := g.counter.Failures(r.Context(), failureKey(r))
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("Failure counter unavailable")
		}
		if n >= g.maxFailures {
			g.metrics.RecordRateLimited("brute_force")
			httputil.WriteRetryAfter(w, g.window)
			httputil.WriteAppError(w, r, apperr.TooManyRequests(MsgTooManyRequests).WithReason("brute_force"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail counts one failed login for the caller
func (g *BruteForceGuard) Fail(r *http.Request) {
	if _, err := g.counter.RecordFailure(r.Context(), failureKey(r)); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("Failed to record login failure")
	}
}

// Succeed clears the caller's failure count
func (g *BruteForceGuard) Succeed(r *http.Request) {
	if err := g.counter.Reset(r.Context(), failureKey(r)); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("Failed to reset login failures")
	}
}
