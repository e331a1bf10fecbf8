// Package config provides application configuration management from environment variables.
//
// # Overview
//
// Every setting is read from a TASKFORGE_-prefixed environment variable,
// optionally preloaded from .env files, and validated once at startup.
// The resulting Config is never mutated afterwards.
//
// # Configuration Structure
//
// Server settings:
//
//	TASKFORGE_HOST="0.0.0.0"
//	TASKFORGE_PORT="5000"
//	TASKFORGE_HEALTH_PORT="9090"
//	TASKFORGE_MAX_BODY_BYTES="10485760"
//	TASKFORGE_CORS_ORIGINS="https://app.example.com"
//
// Auth settings:
//
//	TASKFORGE_JWT_SECRET="at least 32 characters"
//	TASKFORGE_SESSION_SECRET="at least 32 characters, required with Google sign-in"
//	TASKFORGE_AUTH_TIMEOUT="2s"
//	TASKFORGE_DEMO_EMAILS="admin@test.com"
//
// Storage settings:
//
//	TASKFORGE_STORAGE_TYPE="postgres"  # memory, postgres
//	TASKFORGE_DATABASE_URL="postgres://localhost/taskforge?sslmode=disable"
//	TASKFORGE_REDIS_URL="redis://localhost:6379"
//
// Limits:
//
//	TASKFORGE_RATE_LIMIT_REQUESTS="100"
//	TASKFORGE_RATE_LIMIT_WINDOW="15m"
//	TASKFORGE_AUTH_RATE_LIMIT_REQUESTS="5"
//	TASKFORGE_BRUTE_FORCE_MAX_FAILURES="10"
//	TASKFORGE_BRUTE_FORCE_WINDOW="15m"
//
// Google sign-in (all or none):
//
//	TASKFORGE_GOOGLE_CLIENT_ID, TASKFORGE_GOOGLE_CLIENT_SECRET, TASKFORGE_GOOGLE_REDIRECT_URL
//
// Jobs:
//
//	TASKFORGE_CONSISTENCY_SCHEDULE="@every 1h"
//	TASKFORGE_SEED_FILE="/etc/taskforge/seed.yaml"
//
// Observability settings:
//
//	TASKFORGE_LOG_LEVEL="info"  # debug, info, warn, error
//	TASKFORGE_METRICS_ENABLED="true"
//	TASKFORGE_OTEL_ENABLED="true"
//	TASKFORGE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig(".env")
//	if err != nil {
//		log.Fatal(err)
//	}
package config
