package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin         EventType = "auth.login"
	EventTypeAuthLoginFailed   EventType = "auth.login_failed"
	EventTypeAuthLogout        EventType = "auth.logout"
	EventTypeAuthRegister      EventType = "auth.register"
	EventTypeAuthAuthenticated EventType = "auth.authenticated"
	EventTypeAuthTokenInvalid  EventType = "auth.token_invalid"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"
	EventTypeAuthzAdminBypass  EventType = "authz.admin_bypass"
	EventTypeAuthzRoleChange   EventType = "authz.role_change"

	// Membership events
	EventTypeMembershipAdd    EventType = "membership.add"
	EventTypeMembershipRemove EventType = "membership.remove"
	EventTypeLeadRepair       EventType = "membership.lead_repair"

	// Resource lifecycle events
	EventTypeOrgCreate      EventType = "org.create"
	EventTypeResourceDelete EventType = "resource.delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeToken        ResourceType = "token"
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeTeam         ResourceType = "team"
	ResourceTypeMembership   ResourceType = "membership"
	ResourceTypeProject      ResourceType = "project"
	ResourceTypeTask         ResourceType = "task"
	ResourceTypeRoute        ResourceType = "route"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID string `json:"user_id,omitempty"`

	// Target
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Reason is a short machine-readable cause, e.g. "expired" or "not_member"
	Reason string `json:"reason,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
