package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// File is the YAML document
type File struct {
	Users         []User         `yaml:"users"`
	Organizations []Organization `yaml:"organizations"`
	Teams         []Team         `yaml:"teams"`
}

// User is a local account to create
type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Admin    bool   `yaml:"admin"`
}

// Organization is an organization to create; admins are user emails
type Organization struct {
	Name   string   `yaml:"name"`
	Admins []string `yaml:"admins"`
}

// Team is a team to create; lead and members are user emails
type Team struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Organization string   `yaml:"organization"`
	Lead         string   `yaml:"lead"`
	Members      []string `yaml:"members"`
}

// Result counts what Apply created and skipped
type Result struct {
	UsersCreated         int `json:"usersCreated"`
	UsersSkipped         int `json:"usersSkipped"`
	OrganizationsCreated int `json:"organizationsCreated"`
	OrganizationsSkipped int `json:"organizationsSkipped"`
	TeamsCreated         int `json:"teamsCreated"`
	TeamsSkipped         int `json:"teamsSkipped"`
}

// Load reads a seed file from disk
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a seed document
func Parse(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks that every entry is complete. References between
// entries are resolved by Apply against the store.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		email := normalizeEmail(u.Email)
		switch {
		case strings.TrimSpace(u.Name) == "":
			return fmt.Errorf("users[%d]: name is required", i)
		case email == "":
			return fmt.Errorf("users[%d]: email is required", i)
		case len(u.Password) < 8:
			return fmt.Errorf("users[%d]: password must be at least 8 characters", i)
		case seen[email]:
			return fmt.Errorf("users[%d]: duplicate email %s", i, email)
		}
		seen[email] = true
	}
	for i, o := range f.Organizations {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("organizations[%d]: name is required", i)
		}
	}
	for i, t := range f.Teams {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("teams[%d]: name is required", i)
		}
		if normalizeEmail(t.Lead) == "" {
			return fmt.Errorf("teams[%d]: lead is required", i)
		}
	}
	return nil
}

// Seeder applies seed files to a store
type Seeder struct {
	store  storage.Store
	teams  *membership.Service
	logger *observability.Logger
}

// NewSeeder creates a seeder. Teams are created through the membership
// service so that the lead and member records are written together.
func NewSeeder(store storage.Store, teams *membership.Service, logger *observability.Logger) *Seeder {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Seeder{store: store, teams: teams, logger: logger}
}

// Apply creates users, then organizations, then teams
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}
	ids := make(map[string]string)

	for _, u := range f.Users {
		id, created, err := s.ensureUser(ctx, u)
		if err != nil {
			return res, err
		}
		ids[normalizeEmail(u.Email)] = id
		if created {
			res.UsersCreated++
		} else {
			res.UsersSkipped++
		}
	}

	resolve := func(email string) (string, error) {
		email = normalizeEmail(email)
		if id, ok := ids[email]; ok {
			return id, nil
		}
		u, err := s.store.GetUserByEmail(ctx, email)
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("unknown user %s", email)
		}
		if err != nil {
			return "", fmt.Errorf("failed to look up user %s: %w", email, err)
		}
		ids[email] = u.ID
		return u.ID, nil
	}

	orgIDs := make(map[string]string)
	for _, o := range f.Organizations {
		id, created, err := s.ensureOrganization(ctx, o, resolve)
		if err != nil {
			return res, err
		}
		orgIDs[strings.ToLower(strings.TrimSpace(o.Name))] = id
		if created {
			res.OrganizationsCreated++
		} else {
			res.OrganizationsSkipped++
		}
	}

	for _, t := range f.Teams {
		created, err := s.ensureTeam(ctx, t, resolve, orgIDs)
		if err != nil {
			return res, err
		}
		if created {
			res.TeamsCreated++
		} else {
			res.TeamsSkipped++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"users_created": res.UsersCreated,
		"orgs_created":  res.OrganizationsCreated,
		"teams_created": res.TeamsCreated,
	}).Info("Seed applied")
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u User) (string, bool, error) {
	email := normalizeEmail(u.Email)
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", false, fmt.Errorf("failed to look up user %s: %w", email, err)
	}

	hash, err := auth.HashPassword(u.Password)
	if err != nil {
		return "", false, fmt.Errorf("failed to hash password for %s: %w", email, err)
	}
	user := &storage.User{
		Name:         strings.TrimSpace(u.Name),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      u.Admin,
		AuthProvider: "local",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", false, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return user.ID, true, nil
}

func (s *Seeder) ensureOrganization(ctx context.Context, o Organization, resolve func(string) (string, error)) (string, bool, error) {
	name := strings.TrimSpace(o.Name)
	existing, err := s.store.GetOrganizationByName(ctx, name)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", false, fmt.Errorf("failed to look up organization %s: %w", name, err)
	}

	org := &storage.Organization{Name: name, IsActive: true}
	for _, email := range o.Admins {
		id, err := resolve(email)
		if err != nil {
			return "", false, fmt.Errorf("organization %s: %w", name, err)
		}
		org.Admins = append(org.Admins, id)
	}
	if len(org.Admins) > 0 {
		org.CreatedBy = org.Admins[0]
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return "", false, fmt.Errorf("failed to create organization %s: %w", name, err)
	}
	return org.ID, true, nil
}

func (s *Seeder) ensureTeam(ctx context.Context, t Team, resolve func(string) (string, error), orgIDs map[string]string) (bool, error) {
	name := strings.TrimSpace(t.Name)
	_, err := s.store.GetTeamByName(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("failed to look up team %s: %w", name, err)
	}

	leadID, err := resolve(t.Lead)
	if err != nil {
		return false, fmt.Errorf("team %s: %w", name, err)
	}
	in := membership.CreateTeamInput{Name: name, Description: t.Description, TeamLeadID: leadID}
	for _, email := range t.Members {
		id, err := resolve(email)
		if err != nil {
			return false, fmt.Errorf("team %s: %w", name, err)
		}
		in.MemberIDs = append(in.MemberIDs, id)
	}
	if t.Organization != "" {
		orgID, ok := orgIDs[strings.ToLower(strings.TrimSpace(t.Organization))]
		if !ok {
			org, err := s.store.GetOrganizationByName(ctx, t.Organization)
			if err != nil {
				return false, fmt.Errorf("team %s: unknown organization %s", name, t.Organization)
			}
			orgID = org.ID
		}
		in.OrganizationID = orgID
	}

	if _, err := s.teams.CreateTeam(ctx, in); err != nil {
		return false, fmt.Errorf("failed to create team %s: %w", name, err)
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
