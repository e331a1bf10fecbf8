package middleware

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/memdb"
)

type scopeFixture struct {
	gate    *ScopeGate
	team    *storage.Team
	project *storage.Project
	task    *storage.Task
}

func newScopeFixture(t *testing.T) *scopeFixture {
	t.Helper()
	ctx := context.Background()
	store, err := memdb.New()
	require.NoError(t, err)

	team := &storage.Team{Name: "alpha", IsActive: true}
	require.NoError(t, store.CreateTeam(ctx, team))
	project := &storage.Project{Name: "Apollo", TeamID: team.ID, Status: storage.ProjectStatusPending, IsActive: true}
	require.NoError(t, store.CreateProject(ctx, project))
	task := &storage.Task{Title: "Launch", TeamID: team.ID, ProjectID: project.ID, State: storage.TaskStateTodo, IsActive: true}
	require.NoError(t, store.CreateTask(ctx, task))

	return &scopeFixture{gate: NewScopeGate(store, nil), team: team, project: project, task: task}
}

func (f *scopeFixture) principals() (admin, lead, member, outsider *auth.Principal) {
	admin = &auth.Principal{ID: "admin", IsAdmin: true, Role: auth.RoleAdmin}
	lead = &auth.Principal{ID: "lead", Role: auth.RoleTeamLead,
		Teams: []auth.TeamAccess{{TeamID: f.team.ID, Role: auth.TeamRoleLead}}}
	member = &auth.Principal{ID: "member", Role: auth.RoleTeamMember,
		Teams: []auth.TeamAccess{{TeamID: f.team.ID, Role: auth.TeamRoleMember}}}
	// leads another team: primary role alone would wrongly admit
	outsider = &auth.Principal{ID: "outsider", Role: auth.RoleTeamLead,
		Teams: []auth.TeamAccess{{TeamID: "other-team", Role: auth.TeamRoleLead}}}
	return
}

func serveScoped(mw func(http.Handler) http.Handler, p *auth.Principal, req *http.Request, vars map[string]string) (*httptest.ResponseRecorder, *okHandler) {
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	if p != nil {
		req = withPrincipal(req, p)
	}
	next := &okHandler{}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec, next
}

func TestRequireProjectAccess(t *testing.T) {
	f := newScopeFixture(t)
	admin, lead, member, outsider := f.principals()
	mw := f.gate.RequireProjectAccess(PathVar("projectId"))
	vars := map[string]string{"projectId": f.project.ID}

	t.Run("admin without membership is admitted and audited", func(t *testing.T) {
		events := &recordingAudit{}
		req := withAudit(httptest.NewRequest(http.MethodGet, "/", nil), events)
		rec, next := serveScoped(mw, admin, req, vars)

		assert.Equal(t, http.StatusOK, rec.Code)
		project, ok := ProjectFromContext(next.req.Context())
		require.True(t, ok)
		assert.Equal(t, f.project.ID, project.ID)
		_, hasMembership := MembershipFromContext(next.req.Context())
		assert.False(t, hasMembership)
		assert.Len(t, events.ofType(audit.EventTypeAuthzAdminBypass), 1)
	})

	for _, p := range []*auth.Principal{lead, member} {
		t.Run("member "+p.ID+" is admitted", func(t *testing.T) {
			rec, next := serveScoped(mw, p, httptest.NewRequest(http.MethodGet, "/", nil), vars)
			assert.Equal(t, http.StatusOK, rec.Code)
			m, ok := MembershipFromContext(next.req.Context())
			require.True(t, ok)
			assert.Equal(t, f.team.ID, m.TeamID)
		})
	}

	t.Run("non member is forbidden", func(t *testing.T) {
		events := &recordingAudit{}
		req := withAudit(httptest.NewRequest(http.MethodGet, "/", nil), events)
		rec, next := serveScoped(mw, outsider, req, vars)

		assert.False(t, next.called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Access denied. You're not a member of this project's team.", bodyMessage(t, rec))
		denied := events.ofType(audit.EventTypeAuthzAccessDenied)
		require.Len(t, denied, 1)
		assert.Equal(t, "team_mismatch", denied[0].Reason)
	})

	t.Run("absence is reported before permission", func(t *testing.T) {
		rec, _ := serveScoped(mw, outsider, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"projectId": "missing"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", bodyMessage(t, rec))
	})

	t.Run("missing id", func(t *testing.T) {
		rec, _ := serveScoped(mw, member, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("without identity", func(t *testing.T) {
		rec, _ := serveScoped(mw, nil, httptest.NewRequest(http.MethodGet, "/", nil), vars)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireProjectAccessFromBody(t *testing.T) {
	f := newScopeFixture(t)
	_, _, member, outsider := f.principals()
	mw := f.gate.RequireProjectAccess(JSONField("projectId"))
	body := `{"title":"Write docs","projectId":"` + f.project.ID + `"}`

	rec, next := serveScoped(mw, member, httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the handler can still read the body
	restored, err := io.ReadAll(next.req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(restored))

	rec, _ = serveScoped(mw, outsider, httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body)), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serveScoped(mw, member, httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"x"}`)), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serveScoped(mw, member, httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"projectId":`)), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireTaskAccess(t *testing.T) {
	f := newScopeFixture(t)
	admin, _, member, outsider := f.principals()
	mw := f.gate.RequireTaskAccess(PathVar("taskId"))
	vars := map[string]string{"taskId": f.task.ID}

	rec, next := serveScoped(mw, member, httptest.NewRequest(http.MethodGet, "/", nil), vars)
	assert.Equal(t, http.StatusOK, rec.Code)
	task, ok := TaskFromContext(next.req.Context())
	require.True(t, ok)
	assert.Equal(t, f.task.ID, task.ID)

	rec, _ = serveScoped(mw, admin, httptest.NewRequest(http.MethodGet, "/", nil), vars)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serveScoped(mw, outsider, httptest.NewRequest(http.MethodGet, "/", nil), vars)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. You're not a member of this task's team.", bodyMessage(t, rec))

	rec, _ = serveScoped(mw, outsider, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"taskId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequireTeamGates(t *testing.T) {
	f := newScopeFixture(t)
	admin, lead, member, outsider := f.principals()
	vars := map[string]string{"teamId": f.team.ID}

	access := f.gate.RequireTeamAccess(PathVar("teamId"))
	leadOnly := f.gate.RequireTeamLead(PathVar("teamId"))

	tests := []struct {
		name      string
		mw        func(http.Handler) http.Handler
		principal *auth.Principal
		want      int
	}{
		{"access admin", access, admin, http.StatusOK},
		{"access member", access, member, http.StatusOK},
		{"access outsider", access, outsider, http.StatusForbidden},
		{"lead admin", leadOnly, admin, http.StatusOK},
		{"lead lead", leadOnly, lead, http.StatusOK},
		{"lead member", leadOnly, member, http.StatusForbidden},
		{"lead outsider", leadOnly, outsider, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, next := serveScoped(tt.mw, tt.principal, httptest.NewRequest(http.MethodGet, "/", nil), vars)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				team, ok := TeamFromContext(next.req.Context())
				require.True(t, ok)
				assert.Equal(t, f.team.ID, team.ID)
			}
		})
	}
}

func TestFirstOf(t *testing.T) {
	src := FirstOf(PathVar("projectId"), JSONField("projectId"))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"projectId":"from-body"}`))

	id, err := src.id(req)
	require.NoError(t, err)
	assert.Equal(t, "from-body", id)

	req = mux.SetURLVars(req, map[string]string{"projectId": "from-path"})
	id, err = src.id(req)
	require.NoError(t, err)
	assert.Equal(t, "from-path", id)
}

// Scope decisions must come from the membership of the owning team. This
// walks scope.go and fails if any code reads the primary Role of a
// principal variable.
func TestScopeGateNeverReadsPrimaryRole(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "scope.go", nil, 0)
	require.NoError(t, err)

	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Role" {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == "p" {
			t.Errorf("%s: scope gate reads principal.Role", fset.Position(sel.Pos()))
		}
		return true
	})
}
