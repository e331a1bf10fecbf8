package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/observability"
)

// MsgTooManyRequests is the body message of every 429
const MsgTooManyRequests = "Too many requests, please try again later."

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// Name labels metrics and prefixes redis keys
	Name string
	// Requests is the max requests allowed per client in Window
	Requests int
	Window   time.Duration
}

// DefaultRateLimitConfig is the general API limit: 100 requests per 15 minutes
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "api", Requests: 100, Window: 15 * time.Minute}
}

// AuthRateLimitConfig is the login/register limit: 5 requests per 15 minutes
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "auth", Requests: 5, Window: 15 * time.Minute}
}

// Limiter decides whether one more request for key fits the budget. When it
// does not, retryAfter says how long the client should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Config() RateLimitConfig
}

// MemoryLimiter keeps one token bucket per key. Buckets refill at
// Requests/Window with a burst of Requests and are evicted once idle for a
// window, which keeps memory bounded for one-off clients.
type MemoryLimiter struct {
	config  RateLimitConfig
	limit   rate.Limit
	mu      sync.Mutex
	buckets *lru.LRU[string, *rate.Limiter]
	now     func() time.Time
}

// NewMemoryLimiter creates an in-process limiter tracking at most size keys
func NewMemoryLimiter(config RateLimitConfig, size int) *MemoryLimiter {
	if size <= 0 {
		size = 100000
	}
	if config.Requests <= 0 {
		config.Requests = 1
	}
	return &MemoryLimiter{
		config:  config,
		limit:   rate.Every(config.Window / time.Duration(config.Requests)),
		buckets: lru.NewLRU[string, *rate.Limiter](size, nil, config.Window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Config() RateLimitConfig {
	return l.config
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.config.Requests)
	}
	// re-adding refreshes the idle expiry
	l.buckets.Add(key, bucket)
	l.mu.Unlock()

	now := l.now()
	res := bucket.ReserveN(now, 1)
	if !res.OK() {
		return false, l.config.Window, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// RateLimit rejects clients over budget with 429 and Retry-After. Keys are
// the client address. Limiter errors fail open and are logged.
func RateLimit(limiter Limiter, metrics *observability.Metrics) func(http.Handler) http.Handler {
	cfg := limiter.Config()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "ip:" + httputil.ClientIP(r)

			allowed, retryAfter, err := limiter.Allow(ctx, key)
			if err != nil {
				observability.FromContext(ctx).WithError(err).
					WithField("limiter", cfg.Name).
					Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			if !allowed {
				metrics.RecordRateLimited(cfg.Name)
				w.Header().Set("X-RateLimit-Remaining", "0")
				httputil.WriteRetryAfter(w, retryAfter)
				httputil.WriteAppError(w, r, apperr.TooManyRequests(MsgTooManyRequests).WithReason(cfg.Name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
