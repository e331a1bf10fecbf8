package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/platinummonkey/taskforge/pkg/storage"
)

// uniqueViolation is the SQLSTATE for unique constraint violations
const uniqueViolation = "23505"

// querier is the subset of *sql.DB and *sql.Tx used by the store
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// Store implements storage.Store on PostgreSQL
type Store struct {
	db  *sql.DB
	q   querier
	tx  *sql.Tx
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates a store on an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db, now: time.Now}
}

// DB returns the underlying handle for health checks and audit logging
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunInTx runs fn in a database transaction
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := s.now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// mapError converts driver errors into storage sentinels
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return storage.ErrConflict
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// expectOne maps a zero-row update to ErrNotFound
func expectOne(res sql.Result, err error, op string) error {
	if err != nil {
		return mapError(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Users

const userColumns = `id, name, email, password_hash, is_admin, requested_role, auth_provider, created_at, updated_at`

func scanUser(row scanner) (*storage.User, error) {
	u := &storage.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin,
		&u.RequestedRole, &u.AuthProvider, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *storage.User) error {
	s.stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if user.AuthProvider == "" {
		user.AuthProvider = "local"
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsAdmin,
		user.RequestedRole, user.AuthProvider, user.CreatedAt, user.UpdatedAt)
	return mapError(err, "create user")
}

func (s *Store) GetUser(ctx context.Context, id string) (*storage.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, mapError(err, "get user by email")
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*storage.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, mapError(err, "list users")
	}
	defer rows.Close()

	var users []*storage.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err, "scan user")
		}
		users = append(users, u)
	}
	return users, mapError(rows.Err(), "list users")
}

func (s *Store) UpdateUser(ctx context.Context, user *storage.User) error {
	user.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, is_admin = $5,
		    requested_role = $6, auth_provider = $7, updated_at = $8
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsAdmin,
		user.RequestedRole, user.AuthProvider, user.UpdatedAt)
	return expectOne(res, err, "update user")
}

// Organizations

const organizationColumns = `id, name, created_by, admins, is_active, created_at, updated_at`

func scanOrganization(row scanner) (*storage.Organization, error) {
	o := &storage.Organization{}
	var createdBy sql.NullString
	if err := row.Scan(&o.ID, &o.Name, &createdBy, pq.Array(&o.Admins), &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.CreatedBy = createdBy.String
	return o, nil
}

func (s *Store) CreateOrganization(ctx context.Context, org *storage.Organization) error {
	s.stamp(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO organizations (`+organizationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, org.ID, org.Name, nullString(org.CreatedBy), pq.Array(org.Admins), org.IsActive, org.CreatedAt, org.UpdatedAt)
	return mapError(err, "create organization")
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*storage.Organization, error) {
	o, err := scanOrganization(s.q.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get organization")
	}
	return o, nil
}

func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*storage.Organization, error) {
	o, err := scanOrganization(s.q.QueryRowContext(ctx, `
		SELECT `+organizationColumns+` FROM organizations
		WHERE lower(name) = lower($1) AND is_active
		LIMIT 1
	`, name))
	if err != nil {
		return nil, mapError(err, "get organization by name")
	}
	return o, nil
}

func (s *Store) ListOrganizations(ctx context.Context, limit, offset int) ([]*storage.Organization, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, mapError(err, "count organizations")
	}

	pageLimit := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+organizationColumns+` FROM organizations
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, pageLimit, offset)
	if err != nil {
		return nil, 0, mapError(err, "list organizations")
	}
	defer rows.Close()

	orgs := []*storage.Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, mapError(err, "scan organization")
		}
		orgs = append(orgs, o)
	}
	return orgs, total, mapError(rows.Err(), "list organizations")
}

func (s *Store) UpdateOrganization(ctx context.Context, org *storage.Organization) error {
	org.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE organizations
		SET name = $2, admins = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`, org.ID, org.Name, pq.Array(org.Admins), org.IsActive, org.UpdatedAt)
	return expectOne(res, err, "update organization")
}

// Teams

const teamColumns = `id, name, description, organization_id, team_lead_id, member_ids, is_active, created_at, updated_at`

func scanTeam(row scanner) (*storage.Team, error) {
	t := &storage.Team{}
	var orgID, leadID sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &orgID, &leadID,
		pq.Array(&t.MemberIDs), &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.OrganizationID = orgID.String
	t.TeamLeadID = leadID.String
	return t, nil
}

func (s *Store) CreateTeam(ctx context.Context, team *storage.Team) error {
	s.stamp(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, team.ID, team.Name, team.Description, nullString(team.OrganizationID), nullString(team.TeamLeadID),
		pq.Array(team.MemberIDs), team.IsActive, team.CreatedAt, team.UpdatedAt)
	return mapError(err, "create team")
}

func (s *Store) GetTeam(ctx context.Context, id string) (*storage.Team, error) {
	t, err := scanTeam(s.q.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get team")
	}
	return t, nil
}

// GetTeamForUpdate locks the team row for the rest of the transaction so
// concurrent role transitions on the same team serialize
func (s *Store) GetTeamForUpdate(ctx context.Context, id string) (*storage.Team, error) {
	t, err := scanTeam(s.q.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock team")
	}
	return t, nil
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (*storage.Team, error) {
	t, err := scanTeam(s.q.QueryRowContext(ctx, `
		SELECT `+teamColumns+` FROM teams
		WHERE lower(name) = lower($1) AND is_active
		LIMIT 1
	`, name))
	if err != nil {
		return nil, mapError(err, "get team by name")
	}
	return t, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]*storage.Team, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, mapError(err, "list teams")
	}
	defer rows.Close()

	var teams []*storage.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, mapError(err, "scan team")
		}
		teams = append(teams, t)
	}
	return teams, mapError(rows.Err(), "list teams")
}

func (s *Store) UpdateTeam(ctx context.Context, team *storage.Team) error {
	team.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE teams
		SET name = $2, description = $3, organization_id = $4, team_lead_id = $5,
		    member_ids = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`, team.ID, team.Name, team.Description, nullString(team.OrganizationID), nullString(team.TeamLeadID),
		pq.Array(team.MemberIDs), team.IsActive, team.UpdatedAt)
	return expectOne(res, err, "update team")
}

// Memberships

const membershipColumns = `m.id, m.user_id, m.team_id, m.role, m.is_admin, m.is_active, m.created_at, m.updated_at`

func membershipFields(m *storage.TeamMembership) []interface{} {
	return []interface{}{&m.ID, &m.UserID, &m.TeamID, &m.Role, &m.IsAdmin, &m.IsActive, &m.CreatedAt, &m.UpdatedAt}
}

func (s *Store) CreateMembership(ctx context.Context, m *storage.TeamMembership) error {
	s.stamp(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO team_memberships (id, user_id, team_id, role, is_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.UserID, m.TeamID, m.Role, m.IsAdmin, m.IsActive, m.CreatedAt, m.UpdatedAt)
	return mapError(err, "create membership")
}

func (s *Store) GetMembership(ctx context.Context, teamID, userID string) (*storage.TeamMembership, error) {
	m := &storage.TeamMembership{}
	err := s.q.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM team_memberships m
		WHERE m.team_id = $1 AND m.user_id = $2
	`, teamID, userID).Scan(membershipFields(m)...)
	if err != nil {
		return nil, mapError(err, "get membership")
	}
	return m, nil
}

func (s *Store) UpdateMembership(ctx context.Context, m *storage.TeamMembership) error {
	m.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE team_memberships
		SET role = $4, is_admin = $5, is_active = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2 AND team_id = $3
	`, m.ID, m.UserID, m.TeamID, m.Role, m.IsAdmin, m.IsActive, m.UpdatedAt)
	return expectOne(res, err, "update membership")
}

func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]*storage.MembershipDetail, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+membershipColumns+`, t.name
		FROM team_memberships m
		JOIN teams t ON t.id = m.team_id
		WHERE m.user_id = $1 AND m.is_active AND t.is_active
		ORDER BY m.created_at, m.team_id
	`, userID)
	if err != nil {
		return nil, mapError(err, "list user memberships")
	}
	defer rows.Close()

	var out []*storage.MembershipDetail
	for rows.Next() {
		d := &storage.MembershipDetail{}
		dest := append(membershipFields(&d.TeamMembership), &d.TeamName)
		if err := rows.Scan(dest...); err != nil {
			return nil, mapError(err, "scan membership")
		}
		out = append(out, d)
	}
	return out, mapError(rows.Err(), "list user memberships")
}

func (s *Store) ListTeamMemberships(ctx context.Context, teamID string) ([]*storage.MembershipDetail, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+membershipColumns+`, t.name, u.name, u.email
		FROM team_memberships m
		JOIN teams t ON t.id = m.team_id
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1 AND m.is_active
		ORDER BY m.created_at, m.user_id
	`, teamID)
	if err != nil {
		return nil, mapError(err, "list team memberships")
	}
	defer rows.Close()

	var out []*storage.MembershipDetail
	for rows.Next() {
		d := &storage.MembershipDetail{}
		dest := append(membershipFields(&d.TeamMembership), &d.TeamName, &d.UserName, &d.UserEmail)
		if err := rows.Scan(dest...); err != nil {
			return nil, mapError(err, "scan membership")
		}
		out = append(out, d)
	}
	return out, mapError(rows.Err(), "list team memberships")
}

func (s *Store) ListLeadMemberships(ctx context.Context, teamID string) ([]*storage.TeamMembership, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM team_memberships m
		WHERE m.team_id = $1 AND m.is_active AND m.role = $2
		ORDER BY m.created_at
	`, teamID, storage.MembershipRoleLead)
	if err != nil {
		return nil, mapError(err, "list lead memberships")
	}
	defer rows.Close()

	var out []*storage.TeamMembership
	for rows.Next() {
		m := &storage.TeamMembership{}
		if err := rows.Scan(membershipFields(m)...); err != nil {
			return nil, mapError(err, "scan membership")
		}
		out = append(out, m)
	}
	return out, mapError(rows.Err(), "list lead memberships")
}

// Projects

const projectColumns = `id, name, description, team_id, status, end_date, created_by, is_active, created_at, updated_at`

func scanProject(row scanner) (*storage.Project, error) {
	p := &storage.Project{}
	var createdBy sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TeamID, &p.Status, &p.EndDate,
		&createdBy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedBy = createdBy.String
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, project *storage.Project) error {
	s.stamp(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, project.ID, project.Name, project.Description, project.TeamID, project.Status, project.EndDate,
		nullString(project.CreatedBy), project.IsActive, project.CreatedAt, project.UpdatedAt)
	return mapError(err, "create project")
}

func (s *Store) GetProject(ctx context.Context, id string) (*storage.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, mapError(err, "get project")
	}
	return p, nil
}

// GetProjectForUpdate locks the project row for the rest of the transaction
func (s *Store) GetProjectForUpdate(ctx context.Context, id string) (*storage.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 AND is_active FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock project")
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, teamIDs []string) ([]*storage.Project, error) {
	if teamIDs != nil && len(teamIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE is_active`
	var args []interface{}
	if teamIDs != nil {
		query += ` AND team_id = ANY($1)`
		args = append(args, pq.Array(teamIDs))
	}
	query += ` ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list projects")
	}
	defer rows.Close()

	var projects []*storage.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, mapError(err, "scan project")
		}
		projects = append(projects, p)
	}
	return projects, mapError(rows.Err(), "list projects")
}

func (s *Store) UpdateProject(ctx context.Context, project *storage.Project) error {
	project.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, description = $3, team_id = $4, status = $5, end_date = $6,
		    is_active = $7, updated_at = $8
		WHERE id = $1
	`, project.ID, project.Name, project.Description, project.TeamID, project.Status, project.EndDate,
		project.IsActive, project.UpdatedAt)
	return expectOne(res, err, "update project")
}

// Tasks

const taskColumns = `id, title, description, state, priority, due_date, assigned_to, assigned_by, created_by,
	team_id, project_id, comments, is_active, created_at, updated_at`

func scanTask(row scanner) (*storage.Task, error) {
	t := &storage.Task{}
	var (
		due                                sql.NullTime
		assignedTo, assignedBy, createdBy sql.NullString
		comments                           []byte
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.State, &t.Priority, &due,
		&assignedTo, &assignedBy, &createdBy, &t.TeamID, &t.ProjectID, &comments,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	t.AssignedTo = assignedTo.String
	t.AssignedBy = assignedBy.String
	t.CreatedBy = createdBy.String
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &t.Comments); err != nil {
			return nil, fmt.Errorf("failed to decode comments: %w", err)
		}
	}
	return t, nil
}

func taskArgs(t *storage.Task) ([]interface{}, error) {
	comments := t.Comments
	if comments == nil {
		comments = []storage.Comment{}
	}
	encoded, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comments: %w", err)
	}
	var due sql.NullTime
	if t.DueDate != nil {
		due = sql.NullTime{Time: *t.DueDate, Valid: true}
	}
	return []interface{}{t.ID, t.Title, t.Description, t.State, t.Priority, due,
		nullString(t.AssignedTo), nullString(t.AssignedBy), nullString(t.CreatedBy),
		t.TeamID, t.ProjectID, encoded, t.IsActive, t.CreatedAt, t.UpdatedAt}, nil
}

func (s *Store) CreateTask(ctx context.Context, task *storage.Task) error {
	s.stamp(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, args...)
	return mapError(err, "create task")
}

func (s *Store) GetTask(ctx context.Context, id string) (*storage.Task, error) {
	t, err := scanTask(s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, mapError(err, "get task")
	}
	return t, nil
}

// GetTaskForUpdate locks the task row so concurrent comment appends
// serialize
func (s *Store) GetTaskForUpdate(ctx context.Context, id string) (*storage.Task, error) {
	t, err := scanTask(s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND is_active FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock task")
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, teamIDs []string) ([]*storage.Task, error) {
	if teamIDs != nil && len(teamIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE is_active`
	var args []interface{}
	if teamIDs != nil {
		query += ` AND team_id = ANY($1)`
		args = append(args, pq.Array(teamIDs))
	}
	query += ` ORDER BY created_at`
	return s.queryTasks(ctx, query, args...)
}

func (s *Store) ListProjectTasks(ctx context.Context, projectID string) ([]*storage.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 AND is_active ORDER BY created_at`, projectID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*storage.Task, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list tasks")
	}
	defer rows.Close()

	var tasks []*storage.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapError(err, "scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, mapError(rows.Err(), "list tasks")
}

func (s *Store) UpdateTask(ctx context.Context, task *storage.Task) error {
	task.UpdatedAt = s.now().UTC()
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, state = $4, priority = $5, due_date = $6,
		    assigned_to = $7, assigned_by = $8, created_by = $9, team_id = $10, project_id = $11,
		    comments = $12, is_active = $13, created_at = $14, updated_at = $15
		WHERE id = $1
	`, args...)
	return expectOne(res, err, "update task")
}
