package observability

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Auth pipeline metrics
	AuthDecisionsTotal    *prometheus.CounterVec
	TokenVerifyDuration   *prometheus.HistogramVec
	ResolveDuration       *prometheus.HistogramVec
	LoginAttemptsTotal    *prometheus.CounterVec
	RateLimitedTotal      *prometheus.CounterVec
	RoleTransitionsTotal  *prometheus.CounterVec
	LeadInconsistencies   prometheus.Gauge
	LeadRepairsTotal      prometheus.Counter

	otel *OTelInstruments
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskforge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskforge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskforge_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		AuthDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskforge_auth_decisions_total",
				Help: "Authentication and authorization decisions by stage and outcome",
			},
			[]string{"stage", "decision", "reason"},
		),
		TokenVerifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskforge_token_verify_duration_seconds",
				Help:    "Bearer token verification duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1},
			},
			[]string{"result"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskforge_membership_resolve_duration_seconds",
				Help:    "Principal resolution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"result"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskforge_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskforge_rate_limited_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		RoleTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskforge_role_transitions_total",
				Help: "Membership role transitions by target role and result",
			},
			[]string{"role", "result"},
		),
		LeadInconsistencies: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskforge_lead_inconsistencies",
				Help: "Teams whose lead pointer disagrees with lead memberships at the last check",
			},
		),
		LeadRepairsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskforge_lead_repairs_total",
				Help: "Teams repaired by the lead consistency checker",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AuthDecisionsTotal,
		m.TokenVerifyDuration,
		m.ResolveDuration,
		m.LoginAttemptsTotal,
		m.RateLimitedTotal,
		m.RoleTransitionsTotal,
		m.LeadInconsistencies,
		m.LeadRepairsTotal,
	)

	return m
}

// WithOTel mirrors auth decisions and resolve timings onto OpenTelemetry
// instruments
func (m *Metrics) WithOTel(instruments *OTelInstruments) *Metrics {
	m.otel = instruments
	return m
}

// RegisterDBStats exports connection pool statistics for db
func RegisterDBStats(registry *prometheus.Registry, db *sql.DB, name string) {
	registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// RecordAuthDecision counts one allow or deny at a pipeline stage. All
// methods are nil-safe so callers can run without metrics.
func (m *Metrics) RecordAuthDecision(ctx context.Context, stage, decision, reason string) {
	if m == nil {
		return
	}
	m.AuthDecisionsTotal.WithLabelValues(stage, decision, reason).Inc()
	m.otel.recordDecision(ctx, stage, decision, reason)
}

// ObserveTokenVerify records how long a verification took
func (m *Metrics) ObserveTokenVerify(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.TokenVerifyDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveResolve records how long principal resolution took
func (m *Metrics) ObserveResolve(ctx context.Context, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolveDuration.WithLabelValues(result).Observe(d.Seconds())
	m.otel.recordResolve(ctx, result, d)
}

func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(limiter).Inc()
}

func (m *Metrics) RecordRoleTransition(role, result string) {
	if m == nil {
		return
	}
	m.RoleTransitionsTotal.WithLabelValues(role, result).Inc()
}

// RecordLeadCheck publishes the outcome of a consistency run
func (m *Metrics) RecordLeadCheck(inconsistent, repaired int) {
	if m == nil {
		return
	}
	m.LeadInconsistencies.Set(float64(inconsistent))
	m.LeadRepairsTotal.Add(float64(repaired))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel uses the matched mux template so ids do not explode cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
