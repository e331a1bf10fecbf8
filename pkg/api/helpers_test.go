package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/memdb"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "correct-horse-battery"
)

type testEnv struct {
	t      *testing.T
	server *Server
	store  *memdb.Store
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	store, err := memdb.New()
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(testSecret,
		auth.WithRevocationList(auth.NewMemoryRevocationList(0, time.Hour)))
	require.NoError(t, err)

	generous := middleware.RateLimitConfig{Name: "test", Requests: 10000, Window: time.Minute}
	opts := Options{
		Store:       store,
		Tokens:      tokens,
		APILimiter:  middleware.NewMemoryLimiter(generous, 0),
		AuthLimiter: middleware.NewMemoryLimiter(generous, 0),
	}
	for _, m := range mutate {
		m(&opts)
	}

	server, err := NewServer(opts)
	require.NoError(t, err)
	return &testEnv{t: t, server: server, store: store, tokens: tokens}
}

// user creates a local account with testPassword
func (e *testEnv) user(name string, admin bool) *storage.User {
	e.t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(e.t, err)
	u := &storage.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: hash,
		IsAdmin:      admin,
		AuthProvider: "local",
	}
	require.NoError(e.t, e.store.CreateUser(context.Background(), u))
	return u
}

// token issues a bearer token for u without going through login
func (e *testEnv) token(u *storage.User) string {
	e.t.Helper()
	tok, _, err := e.tokens.Issue(u.ID, u.IsAdmin)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) team(name string, lead *storage.User, members ...*storage.User) *storage.Team {
	e.t.Helper()
	ctx := context.Background()
	team := &storage.Team{Name: name, TeamLeadID: lead.ID, IsActive: true}
	require.NoError(e.t, e.store.CreateTeam(ctx, team))
	require.NoError(e.t, e.store.CreateMembership(ctx, &storage.TeamMembership{
		TeamID: team.ID, UserID: lead.ID, Role: storage.MembershipRoleLead, IsActive: true,
	}))
	for _, m := range members {
		require.NoError(e.t, e.store.CreateMembership(ctx, &storage.TeamMembership{
			TeamID: team.ID, UserID: m.ID, Role: storage.MembershipRoleMember, IsActive: true,
		}))
	}
	return team
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Total   *int            `json:"total"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	requireStatus(t, rec, status)
	env := decode(t, rec, nil)
	require.False(t, env.Success)
	require.Equal(t, message, env.Message)
}
