// Package audit records security-relevant events: logins, token failures,
// access denials, admin bypasses and membership role changes.
//
// Events are built from the request context and logged through the
// Logger carried by that context:
//
//	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
//		On(audit.ResourceTypeProject, projectID).
//		Because("not_member"))
//
// StructuredLogger writes to the application log, DBLogger to the
// audit_events table, and MultiLogger combines them.
package audit
