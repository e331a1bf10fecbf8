// Package memdb is an embedded, transactional storage.Store built on
// hashicorp/go-memdb. Records are copied on the way in and out so callers
// never alias indexed objects.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	hcmemdb "github.com/hashicorp/go-memdb"

	"github.com/platinummonkey/taskforge/pkg/storage"
)

// Store implements storage.Store in memory
type Store struct {
	db  *hcmemdb.MemDB
	txn *hcmemdb.Txn
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() (*Store, error) {
	db, err := hcmemdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// read returns a transaction for reading and its release func
func (s *Store) read() (*hcmemdb.Txn, func()) {
	if s.txn != nil {
		return s.txn, func() {}
	}
	txn := s.db.Txn(false)
	return txn, txn.Abort
}

// write runs fn in the current transaction, or in a new one committed on success
func (s *Store) write(fn func(txn *hcmemdb.Txn) error) error {
	if s.txn != nil {
		return fn(s.txn)
	}
	txn := s.db.Txn(true)
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

// RunInTx runs fn against a write transaction. memdb allows a single writer,
// so the transaction is serialized against every other write.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.txn != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	tx := &Store{db: s.db, txn: txn, now: s.now}
	if err := fn(tx); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
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

func first(txn *hcmemdb.Txn, table, index string, args ...interface{}) (interface{}, error) {
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	if raw == nil {
		return nil, storage.ErrNotFound
	}
	return raw, nil
}

func collect(txn *hcmemdb.Txn, table, index string, args ...interface{}) ([]interface{}, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	var out []interface{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw)
	}
	return out, nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *storage.User) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableUsers, indexEmail, user.Email); err == nil {
			return storage.ErrConflict
		}
		s.stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
		return txn.Insert(tableUsers, cloneUser(user))
	})
}

func (s *Store) GetUser(ctx context.Context, id string) (*storage.User, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableUsers, indexID, id)
	if err != nil {
		return nil, err
	}
	return cloneUser(raw.(*storage.User)), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableUsers, indexEmail, email)
	if err != nil {
		return nil, err
	}
	return cloneUser(raw.(*storage.User)), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*storage.User, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableUsers, indexID)
	if err != nil {
		return nil, err
	}
	users := make([]*storage.User, 0, len(rows))
	for _, raw := range rows {
		users = append(users, cloneUser(raw.(*storage.User)))
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *storage.User) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableUsers, indexID, user.ID); err != nil {
			return err
		}
		if raw, err := first(txn, tableUsers, indexEmail, user.Email); err == nil && raw.(*storage.User).ID != user.ID {
			return storage.ErrConflict
		}
		user.UpdatedAt = s.now().UTC()
		return txn.Insert(tableUsers, cloneUser(user))
	})
}

// Organizations

func (s *Store) CreateOrganization(ctx context.Context, org *storage.Organization) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		s.stamp(&org.ID, &org.CreatedAt, &org.UpdatedAt)
		return txn.Insert(tableOrganizations, cloneOrganization(org))
	})
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*storage.Organization, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableOrganizations, indexID, id)
	if err != nil {
		return nil, err
	}
	return cloneOrganization(raw.(*storage.Organization)), nil
}

func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*storage.Organization, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableOrganizations, indexName, name)
	if err != nil {
		return nil, err
	}
	for _, raw := range rows {
		if org := raw.(*storage.Organization); org.IsActive {
			return cloneOrganization(org), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListOrganizations(ctx context.Context, limit, offset int) ([]*storage.Organization, int, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableOrganizations, indexID)
	if err != nil {
		return nil, 0, err
	}

	var active []*storage.Organization
	for _, raw := range rows {
		if org := raw.(*storage.Organization); org.IsActive {
			active = append(active, org)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })

	total := len(active)
	if offset >= total {
		return []*storage.Organization{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	page := make([]*storage.Organization, 0, end-offset)
	for _, org := range active[offset:end] {
		page = append(page, cloneOrganization(org))
	}
	return page, total, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, org *storage.Organization) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableOrganizations, indexID, org.ID); err != nil {
			return err
		}
		org.UpdatedAt = s.now().UTC()
		return txn.Insert(tableOrganizations, cloneOrganization(org))
	})
}

// Teams

func (s *Store) CreateTeam(ctx context.Context, team *storage.Team) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		s.stamp(&team.ID, &team.CreatedAt, &team.UpdatedAt)
		return txn.Insert(tableTeams, cloneTeam(team))
	})
}

func (s *Store) GetTeam(ctx context.Context, id string) (*storage.Team, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableTeams, indexID, id)
	if err != nil {
		return nil, err
	}
	return cloneTeam(raw.(*storage.Team)), nil
}

// GetTeamForUpdate is a plain read. Inside RunInTx the write transaction
// already excludes every other writer.
func (s *Store) GetTeamForUpdate(ctx context.Context, id string) (*storage.Team, error) {
	return s.GetTeam(ctx, id)
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (*storage.Team, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableTeams, indexName, name)
	if err != nil {
		return nil, err
	}
	for _, raw := range rows {
		if team := raw.(*storage.Team); team.IsActive {
			return cloneTeam(team), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListTeams(ctx context.Context) ([]*storage.Team, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableTeams, indexID)
	if err != nil {
		return nil, err
	}
	var teams []*storage.Team
	for _, raw := range rows {
		if team := raw.(*storage.Team); team.IsActive {
			teams = append(teams, cloneTeam(team))
		}
	}
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].CreatedAt.Before(teams[j].CreatedAt) })
	return teams, nil
}

func (s *Store) UpdateTeam(ctx context.Context, team *storage.Team) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableTeams, indexID, team.ID); err != nil {
			return err
		}
		team.UpdatedAt = s.now().UTC()
		return txn.Insert(tableTeams, cloneTeam(team))
	})
}

// Memberships

func (s *Store) CreateMembership(ctx context.Context, m *storage.TeamMembership) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableMemberships, indexUserTeam, m.UserID, m.TeamID); err == nil {
			return storage.ErrConflict
		}
		s.stamp(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		return txn.Insert(tableMemberships, cloneMembership(m))
	})
}

func (s *Store) GetMembership(ctx context.Context, teamID, userID string) (*storage.TeamMembership, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableMemberships, indexUserTeam, userID, teamID)
	if err != nil {
		return nil, err
	}
	return cloneMembership(raw.(*storage.TeamMembership)), nil
}

func (s *Store) UpdateMembership(ctx context.Context, m *storage.TeamMembership) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		raw, err := first(txn, tableMemberships, indexID, m.ID)
		if err != nil {
			return err
		}
		existing := raw.(*storage.TeamMembership)
		if existing.UserID != m.UserID || existing.TeamID != m.TeamID {
			return fmt.Errorf("membership %s cannot change its user or team", m.ID)
		}
		m.UpdatedAt = s.now().UTC()
		return txn.Insert(tableMemberships, cloneMembership(m))
	})
}

func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]*storage.MembershipDetail, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableMemberships, indexUser, userID)
	if err != nil {
		return nil, err
	}

	var out []*storage.MembershipDetail
	for _, raw := range rows {
		m := raw.(*storage.TeamMembership)
		if !m.IsActive {
			continue
		}
		teamRaw, err := first(txn, tableTeams, indexID, m.TeamID)
		if err != nil {
			continue
		}
		team := teamRaw.(*storage.Team)
		if !team.IsActive {
			continue
		}
		out = append(out, &storage.MembershipDetail{
			TeamMembership: *cloneMembership(m),
			TeamName:       team.Name,
		})
	}
	sortDetails(out)
	return out, nil
}

func (s *Store) ListTeamMemberships(ctx context.Context, teamID string) ([]*storage.MembershipDetail, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableMemberships, indexTeam, teamID)
	if err != nil {
		return nil, err
	}

	var teamName string
	if teamRaw, err := first(txn, tableTeams, indexID, teamID); err == nil {
		teamName = teamRaw.(*storage.Team).Name
	}

	var out []*storage.MembershipDetail
	for _, raw := range rows {
		m := raw.(*storage.TeamMembership)
		if !m.IsActive {
			continue
		}
		detail := &storage.MembershipDetail{
			TeamMembership: *cloneMembership(m),
			TeamName:       teamName,
		}
		if userRaw, err := first(txn, tableUsers, indexID, m.UserID); err == nil {
			u := userRaw.(*storage.User)
			detail.UserName = u.Name
			detail.UserEmail = u.Email
		}
		out = append(out, detail)
	}
	sortDetails(out)
	return out, nil
}

func (s *Store) ListLeadMemberships(ctx context.Context, teamID string) ([]*storage.TeamMembership, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableMemberships, indexTeam, teamID)
	if err != nil {
		return nil, err
	}
	var leads []*storage.TeamMembership
	for _, raw := range rows {
		m := raw.(*storage.TeamMembership)
		if m.IsActive && m.Role == storage.MembershipRoleLead {
			leads = append(leads, cloneMembership(m))
		}
	}
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].CreatedAt.Before(leads[j].CreatedAt) })
	return leads, nil
}

func sortDetails(details []*storage.MembershipDetail) {
	sort.SliceStable(details, func(i, j int) bool {
		if details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].TeamID < details[j].TeamID
		}
		return details[i].CreatedAt.Before(details[j].CreatedAt)
	})
}

// Projects

func (s *Store) CreateProject(ctx context.Context, project *storage.Project) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		s.stamp(&project.ID, &project.CreatedAt, &project.UpdatedAt)
		return txn.Insert(tableProjects, cloneProject(project))
	})
}

func (s *Store) GetProject(ctx context.Context, id string) (*storage.Project, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableProjects, indexID, id)
	if err != nil {
		return nil, err
	}
	project := raw.(*storage.Project)
	if !project.IsActive {
		return nil, storage.ErrNotFound
	}
	return cloneProject(project), nil
}

func (s *Store) ListProjects(ctx context.Context, teamIDs []string) ([]*storage.Project, error) {
	txn, done := s.read()
	defer done()

	rows, err := rowsForTeams(txn, tableProjects, teamIDs)
	if err != nil {
		return nil, err
	}
	var projects []*storage.Project
	for _, raw := range rows {
		if p := raw.(*storage.Project); p.IsActive {
			projects = append(projects, cloneProject(p))
		}
	}
	sort.SliceStable(projects, func(i, j int) bool { return projects[i].CreatedAt.Before(projects[j].CreatedAt) })
	return projects, nil
}

// GetProjectForUpdate is a plain read, like GetTeamForUpdate
func (s *Store) GetProjectForUpdate(ctx context.Context, id string) (*storage.Project, error) {
	return s.GetProject(ctx, id)
}

func (s *Store) UpdateProject(ctx context.Context, project *storage.Project) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableProjects, indexID, project.ID); err != nil {
			return err
		}
		project.UpdatedAt = s.now().UTC()
		return txn.Insert(tableProjects, cloneProject(project))
	})
}

// Tasks

func (s *Store) CreateTask(ctx context.Context, task *storage.Task) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		s.stamp(&task.ID, &task.CreatedAt, &task.UpdatedAt)
		return txn.Insert(tableTasks, cloneTask(task))
	})
}

func (s *Store) GetTask(ctx context.Context, id string) (*storage.Task, error) {
	txn, done := s.read()
	defer done()
	raw, err := first(txn, tableTasks, indexID, id)
	if err != nil {
		return nil, err
	}
	task := raw.(*storage.Task)
	if !task.IsActive {
		return nil, storage.ErrNotFound
	}
	return cloneTask(task), nil
}

func (s *Store) ListTasks(ctx context.Context, teamIDs []string) ([]*storage.Task, error) {
	txn, done := s.read()
	defer done()

	rows, err := rowsForTeams(txn, tableTasks, teamIDs)
	if err != nil {
		return nil, err
	}
	return activeTasks(rows), nil
}

func (s *Store) ListProjectTasks(ctx context.Context, projectID string) ([]*storage.Task, error) {
	txn, done := s.read()
	defer done()
	rows, err := collect(txn, tableTasks, indexProject, projectID)
	if err != nil {
		return nil, err
	}
	return activeTasks(rows), nil
}

func (s *Store) GetTaskForUpdate(ctx context.Context, id string) (*storage.Task, error) {
	return s.GetTask(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, task *storage.Task) error {
	return s.write(func(txn *hcmemdb.Txn) error {
		if _, err := first(txn, tableTasks, indexID, task.ID); err != nil {
			return err
		}
		task.UpdatedAt = s.now().UTC()
		return txn.Insert(tableTasks, cloneTask(task))
	})
}

func activeTasks(rows []interface{}) []*storage.Task {
	var tasks []*storage.Task
	for _, raw := range rows {
		if t := raw.(*storage.Task); t.IsActive {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks
}

// rowsForTeams returns every row of table when teamIDs is nil, otherwise the
// rows owned by the listed teams
func rowsForTeams(txn *hcmemdb.Txn, table string, teamIDs []string) ([]interface{}, error) {
	if teamIDs == nil {
		return collect(txn, table, indexID)
	}
	var rows []interface{}
	seen := make(map[string]bool, len(teamIDs))
	for _, teamID := range teamIDs {
		if seen[teamID] || strings.TrimSpace(teamID) == "" {
			continue
		}
		seen[teamID] = true
		teamRows, err := collect(txn, table, indexTeam, teamID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, teamRows...)
	}
	return rows, nil
}
