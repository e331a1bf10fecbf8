package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness rule
	ErrConflict = errors.New("record already exists")
)

// UserStore persists users
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

// OrganizationStore persists organizations
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	// GetOrganizationByName matches active organizations case-insensitively
	GetOrganizationByName(ctx context.Context, name string) (*Organization, error)
	// ListOrganizations returns one page of active organizations, newest
	// first, and the total count
	ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, int, error)
	UpdateOrganization(ctx context.Context, org *Organization) error
}

// TeamStore persists teams
type TeamStore interface {
	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id string) (*Team, error)
	// GetTeamForUpdate reads a team and locks it until the surrounding
	// transaction ends
	GetTeamForUpdate(ctx context.Context, id string) (*Team, error)
	// GetTeamByName matches active teams case-insensitively
	GetTeamByName(ctx context.Context, name string) (*Team, error)
	// ListTeams returns active teams
	ListTeams(ctx context.Context) ([]*Team, error)
	UpdateTeam(ctx context.Context, team *Team) error
}

// MembershipStore persists team memberships
type MembershipStore interface {
	// CreateMembership fails with ErrConflict when the (user, team) pair exists
	CreateMembership(ctx context.Context, m *TeamMembership) error
	// GetMembership returns the pair's record whether active or not
	GetMembership(ctx context.Context, teamID, userID string) (*TeamMembership, error)
	UpdateMembership(ctx context.Context, m *TeamMembership) error
	// ListUserMemberships returns active memberships of userID in active
	// teams, joined with the team name, oldest first
	ListUserMemberships(ctx context.Context, userID string) ([]*MembershipDetail, error)
	// ListTeamMemberships returns active memberships of teamID joined with
	// user name and email, oldest first
	ListTeamMemberships(ctx context.Context, teamID string) ([]*MembershipDetail, error)
	// ListLeadMemberships returns active team_lead memberships of teamID,
	// oldest first
	ListLeadMemberships(ctx context.Context, teamID string) ([]*TeamMembership, error)
}

// ProjectStore persists projects
type ProjectStore interface {
	CreateProject(ctx context.Context, project *Project) error
	// GetProject returns active projects only
	GetProject(ctx context.Context, id string) (*Project, error)
	// GetProjectForUpdate reads an active project and locks it until the
	// surrounding transaction ends
	GetProjectForUpdate(ctx context.Context, id string) (*Project, error)
	// ListProjects returns active projects of teamIDs, or all when teamIDs is nil
	ListProjects(ctx context.Context, teamIDs []string) ([]*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
}

// TaskStore persists tasks
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	// GetTask returns active tasks only
	GetTask(ctx context.Context, id string) (*Task, error)
	// GetTaskForUpdate reads an active task and locks it until the
	// surrounding transaction ends
	GetTaskForUpdate(ctx context.Context, id string) (*Task, error)
	// ListTasks returns active tasks of teamIDs, or all when teamIDs is nil
	ListTasks(ctx context.Context, teamIDs []string) ([]*Task, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
}

// Store is the complete persistence contract
type Store interface {
	UserStore
	OrganizationStore
	TeamStore
	MembershipStore
	ProjectStore
	TaskStore

	// RunInTx runs fn in a transaction; an error from fn rolls back
	RunInTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Config for storage backend
type Config struct {
	Type string // "memory" or "postgres"

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// Redis config, used by rate limiting, brute-force counters and token revocation
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
	}
}
