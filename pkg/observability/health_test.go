package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil, "test")

	rr := httptest.NewRecorder()
	checker.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Liveness returned %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}
}

func TestHealthChecker_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("no dependencies", func(t *testing.T) {
		status := NewHealthChecker(nil, nil, "v1").Check(ctx)
		if status.Status != StatusHealthy {
			t.Errorf("Expected healthy, got %s", status.Status)
		}
		if status.Version != "v1" {
			t.Errorf("Expected version v1, got %s", status.Version)
		}
	})

	t.Run("healthy store and redis", func(t *testing.T) {
		_, client := newRedis(t)
		status := NewHealthChecker(fakePinger{}, client, "v1").Check(ctx)
		if status.Status != StatusHealthy {
			t.Errorf("Expected healthy, got %s", status.Status)
		}
		if len(status.Dependencies) != 2 {
			t.Errorf("Expected 2 dependencies, got %d", len(status.Dependencies))
		}
	})

	t.Run("store down is unhealthy", func(t *testing.T) {
		status := NewHealthChecker(fakePinger{err: errors.New("connection refused")}, nil, "v1").Check(ctx)
		if status.Status != StatusUnhealthy {
			t.Errorf("Expected unhealthy, got %s", status.Status)
		}
		if msg := status.Dependencies["database"].Message; msg != "connection refused" {
			t.Errorf("Unexpected message %q", msg)
		}
	})

	t.Run("redis down only degrades", func(t *testing.T) {
		mr, client := newRedis(t)
		mr.Close()

		status := NewHealthChecker(fakePinger{}, client, "v1").Check(ctx)
		if status.Status != StatusDegraded {
			t.Errorf("Expected degraded, got %s", status.Status)
		}
	})
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHealthChecker(fakePinger{}, nil, "v1").Readiness(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}

		var status HealthStatus
		if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if status.Status != StatusHealthy {
			t.Errorf("Expected healthy, got %s", status.Status)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHealthChecker(fakePinger{err: errors.New("down")}, nil, "v1").Readiness(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", rr.Code)
		}
	})
}

func TestNewHealthMux(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	mux := NewHealthMux(NewHealthChecker(fakePinger{}, nil, "v1"), registry)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s returned %d, want 200", path, rr.Code)
		}
	}
}
