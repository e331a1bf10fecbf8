package audit

import (
	"context"

	"github.com/platinummonkey/taskforge/pkg/observability"
)

// StructuredLogger writes audit events as structured log lines
type StructuredLogger struct {
	logger *observability.Logger
}

// NewStructuredLogger creates an audit logger on top of logger
func NewStructuredLogger(logger *observability.Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger.WithField("component", "audit")}
}

func (l *StructuredLogger) Log(ctx context.Context, event *Event) error {
	fields := map[string]interface{}{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("user_id", event.UserID)
	set("resource_type", string(event.ResourceType))
	set("resource_id", event.ResourceID)
	set("reason", event.Reason)
	set("ip_address", event.IPAddress)
	set("request_id", event.RequestID)
	set("method", event.Method)
	set("path", event.Path)
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.logger.WithFields(fields)
	msg := event.Message
	if msg == "" {
		msg = string(event.EventType)
	}
	if event.Status == EventStatusSuccess {
		entry.Info(msg)
	} else {
		entry.Warn(msg)
	}
	return nil
}

func (l *StructuredLogger) Close() error { return nil }
