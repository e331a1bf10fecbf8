// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers agree on key and value types.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/taskforge/pkg/contextkeys"
//	ctx = contextkeys.WithPrincipal(ctx, principal)
//	principal, ok := ctx.Value(contextkeys.PrincipalKey).(*auth.Principal)
package contextkeys

import (
	"context"
	"time"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.Principal
	// Set by: middleware.Identity (pkg/middleware/auth.go)
	// Required by: RequireRole, the scope gates and every protected handler
	// Type: *auth.Principal
	PrincipalKey Key = "principal"

	// ProjectKey contains *storage.Project
	// Set by: middleware.ScopeGate.RequireProjectAccess
	// Used by: project and task handlers, so the project is loaded once
	// Type: *storage.Project
	ProjectKey Key = "project"

	// TaskKey contains *storage.Task
	// Set by: middleware.ScopeGate.RequireTaskAccess
	// Type: *storage.Task
	TaskKey Key = "task"

	// TeamKey contains *storage.Team
	// Set by: middleware.ScopeGate.RequireTeamAccess
	// Type: *storage.Team
	TeamKey Key = "team"

	// MembershipKey contains the auth.TeamAccess that admitted a non-admin
	// principal to a team-scoped resource
	// Set by: the ScopeGate checks
	// Type: auth.TeamAccess
	MembershipKey Key = "membership"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated user id
	// Set by: middleware.Identity
	// Used by: Logger, audit trail
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// AuditLoggerKey contains audit.Logger interface
	// Set by: audit.Middleware
	// Type: audit.Logger
	AuditLoggerKey Key = "audit_logger"

	// ClientIPKey contains the caller's address as resolved by httputil.ClientIP
	// Type: string
	ClientIPKey Key = "client_ip"

	// RequestStartTimeKey contains request start timestamp
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithProject adds a loaded project to the context
func WithProject(ctx context.Context, project interface{}) context.Context {
	return context.WithValue(ctx, ProjectKey, project)
}

// WithTask adds a loaded task to the context
func WithTask(ctx context.Context, task interface{}) context.Context {
	return context.WithValue(ctx, TaskKey, task)
}

// WithTeam adds a loaded team to the context
func WithTeam(ctx context.Context, team interface{}) context.Context {
	return context.WithValue(ctx, TeamKey, team)
}

// WithMembership adds the admitting team membership to the context
func WithMembership(ctx context.Context, membership interface{}) context.Context {
	return context.WithValue(ctx, MembershipKey, membership)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithAuditLogger adds audit logger to the context
func WithAuditLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// WithClientIP adds the caller address to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, startTime)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetClientIP retrieves the caller address from context
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

// GetRequestStartTime retrieves the request start time from context
func GetRequestStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(RequestStartTimeKey).(time.Time)
	return t, ok
}
