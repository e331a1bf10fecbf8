// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithFields(map[string]interface{}{"subject": id, "role": role}).Info("authenticated")
//
// Loggers travel in the request context; FromContext attaches the request
// and user ids.
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordAuthDecision(ctx, "scope", "deny", "not_member")
//
// Every Record method is safe on a nil *Metrics.
//
// # Health
//
//	checker := observability.NewHealthChecker(store, redisClient, version)
//	http.ListenAndServe(":9090", observability.NewHealthMux(checker, registry))
//
// # Tracing
//
//	ctx, span := observability.StartSpan(ctx, "membership.resolve")
//	defer func() { observability.EndSpan(span, err) }()
package observability
