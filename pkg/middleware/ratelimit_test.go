package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(RateLimitConfig{Name: "test", Requests: 2, Window: time.Minute}, 0)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 30*time.Second, retry, float64(time.Second))

	ok, _, _ = l.Allow(ctx, "ip:2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(30 * time.Second)
	ok, _, _ = l.Allow(ctx, "ip:1")
	assert.True(t, ok, "one token refills after window/requests")
}

func TestDistributedRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	l := NewDistributedRateLimiter(client, RateLimitConfig{Name: "auth", Requests: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts after expiry")

	require.NoError(t, l.Reset(ctx, "ip:1"))
	assert.False(t, mr.Exists("ratelimit:auth:ip:1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewMemoryLimiter(RateLimitConfig{Name: "auth", Requests: 1, Window: 15 * time.Minute}, 0)
	next := &okHandler{}
	h := RateLimit(l, nil)(next)

	req := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
		r.RemoteAddr = "203.0.113.5:4000"
		h.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, req().Code)

	rec := req()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MsgTooManyRequests, bodyMessage(t, rec))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewDistributedRateLimiter(client, RateLimitConfig{Name: "api", Requests: 1, Window: time.Minute})
	mr.Close()

	next := &okHandler{}
	rec := httptest.NewRecorder()
	RateLimit(l, nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, next.called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
