package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/contextkeys"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

const (
	msgProjectNotFound = "Project not found"
	msgTaskNotFound    = "Task not found"
	msgTeamNotFound    = "Team not found"

	msgNotProjectMember = "Access denied. You're not a member of this project's team."
	msgNotTaskMember    = "Access denied. You're not a member of this task's team."
	msgNotTeamMember    = "Access denied. You're not a member of this team."
	msgNotTeamLead      = "Access denied. Only the team lead can manage this team."
)

// ScopeStore is the read side the scope gates need
type ScopeStore interface {
	GetProject(ctx context.Context, id string) (*storage.Project, error)
	GetTask(ctx context.Context, id string) (*storage.Task, error)
	GetTeam(ctx context.Context, id string) (*storage.Team, error)
}

// IDSource extracts a resource id from a request
type IDSource struct {
	name    string
	extract func(r *http.Request) (string, error)
}

// PathVar reads the id from a gorilla/mux path variable
func PathVar(name string) IDSource {
	return IDSource{name: name, extract: func(r *http.Request) (string, error) {
		return mux.Vars(r)[name], nil
	}}
}

// JSONField reads the id from a top-level string field of the JSON body.
// The body is restored so the handler can decode it again.
func JSONField(name string) IDSource {
	return IDSource{name: name, extract: func(r *http.Request) (string, error) {
		if r.Body == nil {
			return "", nil
		}
		raw, err := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", apperr.Wrap(apperr.KindValidation, "Request body too large", err)
			}
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return "", nil
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return "", apperr.Wrap(apperr.KindValidation, "Invalid JSON", err)
		}
		var id string
		if v, ok := fields[name]; ok {
			if err := json.Unmarshal(v, &id); err != nil {
				return "", apperr.Validation(name + " must be a string")
			}
		}
		return id, nil
	}}
}

// FirstOf tries each source in order and returns the first non-empty id
func FirstOf(sources ...IDSource) IDSource {
	name := ""
	if len(sources) > 0 {
		name = sources[0].name
	}
	return IDSource{name: name, extract: func(r *http.Request) (string, error) {
		for _, s := range sources {
			id, err := s.extract(r)
			if err != nil || id != "" {
				return id, err
			}
		}
		return "", nil
	}}
}

func (s IDSource) id(r *http.Request) (string, error) {
	id, err := s.extract(r)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", apperr.Validation(s.name + " is required")
	}
	return id, nil
}

// ScopeGate admits a principal to a team-owned resource. It always loads
// the resource first, so absence is reported before permission, and it
// decides from the membership of the owning team only.
type ScopeGate struct {
	store   ScopeStore
	metrics *observability.Metrics
}

// NewScopeGate creates a scope gate. metrics may be nil.
func NewScopeGate(store ScopeStore, metrics *observability.Metrics) *ScopeGate {
	return &ScopeGate{store: store, metrics: metrics}
}

// scopeCheck describes one resource type
type scopeCheck struct {
	stage        string
	resourceType audit.ResourceType
	notFound     string
	denied       string
	requireLead  bool
	// load fetches the resource and returns its owning team id and a
	// context carrying it
	load func(ctx context.Context, id string) (teamID string, out context.Context, err error)
}

// RequireProjectAccess loads the project named by src and admits admins and
// members of its team
func (g *ScopeGate) RequireProjectAccess(src IDSource) func(http.Handler) http.Handler {
	return g.require(src, scopeCheck{
		stage:        "project_scope",
		resourceType: audit.ResourceTypeProject,
		notFound:     msgProjectNotFound,
		denied:       msgNotProjectMember,
		load: func(ctx context.Context, id string) (string, context.Context, error) {
			project, err := g.store.GetProject(ctx, id)
			if err != nil {
				return "", ctx, err
			}
			return project.TeamID, contextkeys.WithProject(ctx, project), nil
		},
	})
}

// RequireTaskAccess loads the task named by src and checks its denormalized
// team id directly
func (g *ScopeGate) RequireTaskAccess(src IDSource) func(http.Handler) http.Handler {
	return g.require(src, scopeCheck{
		stage:        "task_scope",
		resourceType: audit.ResourceTypeTask,
		notFound:     msgTaskNotFound,
		denied:       msgNotTaskMember,
		load: func(ctx context.Context, id string) (string, context.Context, error) {
			task, err := g.store.GetTask(ctx, id)
			if err != nil {
				return "", ctx, err
			}
			return task.TeamID, contextkeys.WithTask(ctx, task), nil
		},
	})
}

// RequireTeamAccess admits admins and any active member of the team
func (g *ScopeGate) RequireTeamAccess(src IDSource) func(http.Handler) http.Handler {
	return g.require(src, scopeCheck{
		stage:        "team_scope",
		resourceType: audit.ResourceTypeTeam,
		notFound:     msgTeamNotFound,
		denied:       msgNotTeamMember,
		load:         g.loadTeam,
	})
}

// RequireTeamLead admits admins and the team_lead of the team
func (g *ScopeGate) RequireTeamLead(src IDSource) func(http.Handler) http.Handler {
	return g.require(src, scopeCheck{
		stage:        "team_lead_scope",
		resourceType: audit.ResourceTypeTeam,
		notFound:     msgTeamNotFound,
		denied:       msgNotTeamLead,
		requireLead:  true,
		load:         g.loadTeam,
	})
}

func (g *ScopeGate) loadTeam(ctx context.Context, id string) (string, context.Context, error) {
	team, err := g.store.GetTeam(ctx, id)
	if err != nil {
		return "", ctx, err
	}
	if !team.IsActive {
		return "", ctx, storage.ErrNotFound
	}
	return team.ID, contextkeys.WithTeam(ctx, team), nil
}

func (g *ScopeGate) require(src IDSource, check scopeCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := PrincipalFromContext(ctx)
			if !ok {
				httputil.WriteAppError(w, r, apperr.Unauthenticated(msgAuthRequired))
				return
			}

			id, err := src.id(r)
			if err != nil {
				httputil.WriteAppError(w, r, err)
				return
			}

			teamID, ctx, err := check.load(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				g.metrics.RecordAuthDecision(ctx, check.stage, "deny", "not_found")
				httputil.WriteAppError(w, r, apperr.NotFound(check.notFound))
				return
			}
			if err != nil {
				httputil.WriteAppError(w, r, apperr.Server(fmt.Errorf("failed to load %s %s: %w", check.resourceType, id, err)))
				return
			}

			if p.IsAdmin {
				if !p.IsMemberOf(teamID) {
					audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthzAdminBypass, audit.EventStatusSuccess).
						ForRequest(r).
						On(check.resourceType, id).
						With("team_id", teamID))
				}
				g.metrics.RecordAuthDecision(ctx, check.stage, "allow", "admin")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			access, member := p.Membership(teamID)
			reason := ""
			switch {
			case !member:
				reason = "team_mismatch"
			case check.requireLead && access.Role != auth.TeamRoleLead:
				reason = "not_team_lead"
			}
			if reason != "" {
				g.metrics.RecordAuthDecision(ctx, check.stage, "deny", reason)
				audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
					ForRequest(r).
					On(check.resourceType, id).
					Because(reason).
					With("team_id", teamID))
				httputil.WriteAppError(w, r, apperr.Forbidden(check.denied).WithReason(reason))
				return
			}

			g.metrics.RecordAuthDecision(ctx, check.stage, "allow", string(access.Role))
			ctx = contextkeys.WithMembership(ctx, access)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
