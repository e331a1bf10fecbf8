package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}

	t.Run("registering twice panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Expected duplicate registration to panic")
			}
		}()
		NewMetrics(registry)
	})
}

func TestMetrics_AuthRecording(t *testing.T) {
	ctx := context.Background()
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordAuthDecision(ctx, "identity", "deny", "expired")
	metrics.RecordAuthDecision(ctx, "identity", "deny", "expired")
	metrics.RecordAuthDecision(ctx, "scope", "allow", "admin_bypass")

	if got := testutil.ToFloat64(metrics.AuthDecisionsTotal.WithLabelValues("identity", "deny", "expired")); got != 2 {
		t.Errorf("Expected 2 expired denials, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.AuthDecisionsTotal.WithLabelValues("scope", "allow", "admin_bypass")); got != 1 {
		t.Errorf("Expected 1 admin bypass, got %v", got)
	}

	metrics.RecordLogin("success")
	metrics.RecordRateLimited("auth")
	metrics.RecordRoleTransition("team_lead", "ok")
	metrics.ObserveTokenVerify("ok", time.Millisecond)
	metrics.ObserveResolve(ctx, "ok", 5*time.Millisecond)

	if got := testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 login, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.ResolveDuration); got != 1 {
		t.Errorf("Expected one resolve series, got %d", got)
	}
}

func TestMetrics_LeadCheck(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordLeadCheck(3, 2)
	metrics.RecordLeadCheck(0, 1)

	if got := testutil.ToFloat64(metrics.LeadInconsistencies); got != 0 {
		t.Errorf("Expected gauge to reflect the last run, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.LeadRepairsTotal); got != 3 {
		t.Errorf("Expected 3 repairs in total, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()

	metrics.RecordAuthDecision(ctx, "identity", "deny", "invalid")
	metrics.ObserveTokenVerify("ok", time.Millisecond)
	metrics.ObserveResolve(ctx, "ok", time.Millisecond)
	metrics.RecordLogin("failure")
	metrics.RecordRateLimited("general")
	metrics.RecordRoleTransition("team_member", "ok")
	metrics.RecordLeadCheck(1, 1)
}

func TestMetrics_WithOTel(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	instruments, err := NewOTelInstrumentsFrom(provider.Meter(InstrumentationName))
	if err != nil {
		t.Fatalf("Failed to create instruments: %v", err)
	}

	metrics := NewMetrics(prometheus.NewRegistry()).WithOTel(instruments)
	metrics.RecordAuthDecision(ctx, "role", "deny", "insufficient_role")
	metrics.ObserveResolve(ctx, "ok", 10*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"taskforge.auth.decisions", "taskforge.membership.resolve.duration"} {
		if !names[want] {
			t.Errorf("Expected OTel metric %s to be exported", want)
		}
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false}`))
	}).Methods(http.MethodGet)

	for _, id := range []string{"p1", "p2"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/projects/"+id, nil))
		if rr.Code != http.StatusForbidden {
			t.Fatalf("Expected 403, got %d", rr.Code)
		}
	}

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/projects/{id}", "403"))
	if got != 2 {
		t.Errorf("Expected both requests under the route template, got %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RecordLogin("success")

	server := httptest.NewServer(MetricsHandler(registry))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `taskforge_login_attempts_total{result="success"} 1`) {
		t.Errorf("Expected login counter in exposition output, got:\n%s", body)
	}
}
