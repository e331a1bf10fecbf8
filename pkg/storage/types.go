package storage

import "time"

// User is an identity record
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"isAdmin"`

	// RequestedRole is what the user asked for at registration. It is kept
	// for review only and never grants a membership or admin rights.
	RequestedRole string `json:"requestedRole,omitempty"`

	// AuthProvider is "local" or the name of the OAuth provider
	AuthProvider string    `json:"authProvider"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Organization groups teams
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	Admins    []string  `json:"admins"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Team is a collaboration unit. MemberIDs is a denormalized convenience list;
// TeamMembership records are the source of truth.
type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
	TeamLeadID     string    `json:"teamLead,omitempty"`
	MemberIDs      []string  `json:"members"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasMember reports whether userID is in the denormalized member list
func (t *Team) HasMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember appends userID to the member list if absent
func (t *Team) AddMember(userID string) {
	if !t.HasMember(userID) {
		t.MemberIDs = append(t.MemberIDs, userID)
	}
}

// RemoveMember drops userID from the member list
func (t *Team) RemoveMember(userID string) {
	kept := t.MemberIDs[:0]
	for _, id := range t.MemberIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	t.MemberIDs = kept
}

// MembershipRole is the role stored on a membership record
type MembershipRole string

const (
	MembershipRoleLead   MembershipRole = "team_lead"
	MembershipRoleMember MembershipRole = "team_member"
	// MembershipRoleAdmin mirrors an org-wide admin onto a team. It grants
	// membership only; admin rights come from User.IsAdmin.
	MembershipRoleAdmin MembershipRole = "admin"
)

// Valid reports whether r is a known membership role
func (r MembershipRole) Valid() bool {
	switch r {
	case MembershipRoleLead, MembershipRoleMember, MembershipRoleAdmin:
		return true
	}
	return false
}

// TeamMembership binds a user to a team. Unique on (UserID, TeamID).
type TeamMembership struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user"`
	TeamID    string         `json:"team"`
	Role      MembershipRole `json:"role"`
	IsAdmin   bool           `json:"isAdmin"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// MembershipDetail is a membership joined with its team and user display fields
type MembershipDetail struct {
	TeamMembership
	TeamName  string `json:"teamName"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// Project belongs to exactly one team
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	TeamID      string        `json:"team"`
	Status      ProjectStatus `json:"status"`
	EndDate     time.Time     `json:"endDate"`
	CreatedBy   string        `json:"createdBy"`
	IsActive    bool          `json:"isActive"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TaskState is the workflow state of a task
type TaskState string

const (
	TaskStatePending    TaskState = "pending"
	TaskStateTodo       TaskState = "todo"
	TaskStateInProgress TaskState = "in-progress"
	TaskStateCompleted  TaskState = "completed"
	TaskStateCancelled  TaskState = "cancelled"
)

// TaskPriority ranks tasks
type TaskPriority string

const (
	TaskPriorityNone     TaskPriority = "none"
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// Comment is an append-only note on a task
type Comment struct {
	Text      string    `json:"text"`
	AuthorID  string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task belongs to a project and carries its team id for scope checks
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	State       TaskState    `json:"state"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	AssignedTo  string       `json:"assignedTo,omitempty"`
	AssignedBy  string       `json:"assignedBy"`
	CreatedBy   string       `json:"createdById"`
	TeamID      string       `json:"teamId"`
	ProjectID   string       `json:"projectId"`
	Comments    []Comment    `json:"comments"`
	IsActive    bool         `json:"isActive"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
