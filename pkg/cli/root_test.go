package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/memdb"
)

func newTestEnv(t *testing.T, stdin string) (*Env, *bytes.Buffer, *memdb.Store) {
	t.Helper()
	store, err := memdb.New()
	require.NoError(t, err)
	var out bytes.Buffer
	env := &Env{
		Out:    &out,
		In:     strings.NewReader(stdin),
		Logger: observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
		OpenStore: func(context.Context) (storage.Store, error) {
			return store, nil
		},
	}
	return env, &out, store
}

func execute(ctx context.Context, env *Env, args ...string) error {
	root := NewRootCommand(env)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func TestNewRootCommand(t *testing.T) {
	env, _, _ := newTestEnv(t, "")
	root := NewRootCommand(env)

	assert.Equal(t, "taskforge-admin", root.Name())
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"check-leads", "seed", "hash-password"}, names)
}

func TestCommandUsage(t *testing.T) {
	env, out, _ := newTestEnv(t, "")

	require.NoError(t, execute(context.Background(), env))
	assert.Contains(t, out.String(), "taskforge-admin [command]")
	assert.Contains(t, out.String(), "check-leads")
}

func TestUnknownCommand(t *testing.T) {
	env, _, _ := newTestEnv(t, "")
	err := execute(context.Background(), env, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
}

func TestHashPassword(t *testing.T) {
	env, out, _ := newTestEnv(t, "s3cret-password\n")
	require.NoError(t, execute(context.Background(), env, "hash-password"))

	hash := strings.TrimSpace(out.String())
	assert.True(t, auth.VerifyPassword("s3cret-password", hash))

	env, _, _ = newTestEnv(t, "")
	require.Error(t, execute(context.Background(), env, "hash-password"))
}

func TestSeedCommand(t *testing.T) {
	env, out, store := newTestEnv(t, "")
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - {name: Lead, email: lead@example.com, password: lead-password}
teams:
  - {name: Platform, lead: lead@example.com}
`), 0o600))

	require.NoError(t, execute(context.Background(), env, "seed", "--file", path))
	assert.Contains(t, out.String(), "users: 1 created, 0 skipped")
	assert.Contains(t, out.String(), "teams: 1 created, 0 skipped")

	_, err := store.GetTeamByName(context.Background(), "Platform")
	require.NoError(t, err)

	env, _, _ = newTestEnv(t, "")
	err = execute(context.Background(), env, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file is required")
}

func TestCheckLeads(t *testing.T) {
	env, out, store := newTestEnv(t, "")
	ctx := context.Background()

	first := &storage.User{Name: "First", Email: "first@example.com", AuthProvider: "local"}
	second := &storage.User{Name: "Second", Email: "second@example.com", AuthProvider: "local"}
	require.NoError(t, store.CreateUser(ctx, first))
	require.NoError(t, store.CreateUser(ctx, second))

	team, err := membership.NewService(store, nil).CreateTeam(ctx, membership.CreateTeamInput{
		Name: "Platform", TeamLeadID: first.ID, MemberIDs: []string{second.ID},
	})
	require.NoError(t, err)

	// break the invariant behind the service's back
	m, err := store.GetMembership(ctx, team.ID, second.ID)
	require.NoError(t, err)
	m.Role = storage.MembershipRoleLead
	require.NoError(t, store.UpdateMembership(ctx, m))

	err = execute(ctx, env, "check-leads", "--json")
	require.True(t, errors.Is(err, ErrInconsistent))

	var report membership.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Len(t, report.Problems, 1)
	assert.Equal(t, membership.ProblemMultipleLeads, report.Problems[0].Problem)

	out.Reset()
	require.NoError(t, execute(ctx, env, "check-leads", "--repair"))
	assert.Contains(t, out.String(), "1 with problems, 1 repaired")

	leads, err := store.ListLeadMemberships(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, first.ID, leads[0].UserID)
}
