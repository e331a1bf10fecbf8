package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/platinummonkey/taskforge/pkg/contextkeys"
)

// Logger is the interface for audit logging. Implementations must be safe
// for concurrent use.
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context, or a no-op logger
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NoOp()
}

type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *Event) error { return nil }
func (noOpLogger) Close() error                                 { return nil }

// NoOp returns a logger that discards every event
func NoOp() Logger {
	return noOpLogger{}
}

// NewEvent builds an event populated from the request context
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		UserID:    contextkeys.GetUserID(ctx),
		IPAddress: contextkeys.GetClientIP(ctx),
		RequestID: contextkeys.GetRequestID(ctx),
	}
}

// ForRequest copies method and path from r onto the event
func (e *Event) ForRequest(r *http.Request) *Event {
	if r != nil {
		e.Method = r.Method
		e.Path = r.URL.Path
	}
	return e
}

// On sets the target resource
func (e *Event) On(resourceType ResourceType, resourceID string) *Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// By sets the acting user
func (e *Event) By(userID string) *Event {
	e.UserID = userID
	return e
}

// Because sets the reason code
func (e *Event) Because(reason string) *Event {
	e.Reason = reason
	return e
}

// With adds one metadata entry
func (e *Event) With(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Record logs event with the context logger. Audit failures never fail the
// calling request; the error is returned for callers that care.
func Record(ctx context.Context, event *Event) error {
	return FromContext(ctx).Log(ctx, event)
}
