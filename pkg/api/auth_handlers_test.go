package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

func TestRegister(t *testing.T) {
	t.Run("stores the requested role without granting it", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/users/register", "", RegisterRequest{
			Name: "Lee", Email: "Lee@Example.com", Password: testPassword, Role: "team_lead",
		})
		requireStatus(t, rec, http.StatusCreated)

		var created storage.User
		decode(t, rec, &created)
		assert.Equal(t, "lee@example.com", created.Email)
		assert.False(t, created.IsAdmin)
		assert.Equal(t, "team_lead", created.RequestedRole)

		memberships, err := env.store.ListUserMemberships(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Empty(t, memberships)
	})

	t.Run("admin request does not make an admin", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/users/register", "", RegisterRequest{
			Name: "Ada", Email: "ada@example.com", Password: testPassword, Role: "admin",
		})
		requireStatus(t, rec, http.StatusCreated)

		u, err := env.store.GetUserByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.False(t, u.IsAdmin)
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := newTestEnv(t)
		env.user("dup", false)
		rec := env.do(http.MethodPost, "/api/users/register", "", RegisterRequest{
			Name: "Dup", Email: "dup@example.com", Password: testPassword, Role: "member",
		})
		requireError(t, rec, http.StatusConflict, "User already exists")
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/users/register", "", RegisterRequest{
			Name: "Short", Email: "short@example.com", Password: "x", Role: "member",
		})
		requireStatus(t, rec, http.StatusBadRequest)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	lead := env.user("lead", false)
	other := env.user("other", false)
	env.team("Alpha", other, lead)
	beta := env.team("Beta", lead)

	before := time.Now().Add(-time.Second)
	rec := env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "lead@example.com", Password: testPassword})
	requireStatus(t, rec, http.StatusOK)

	var resp LoginResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, auth.RoleTeamLead, resp.User.Role)
	assert.Equal(t, beta.ID, resp.User.TeamID)
	require.Len(t, resp.User.Teams, 2)
	assert.Equal(t, beta.ID, resp.User.Teams[0].TeamID, "primary team comes first")

	claims, err := env.tokens.Verify(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, claims.Subject)
	assert.Equal(t, 24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.True(t, claims.IssuedAt.After(before))
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.user("sam", false)

	rec := env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "sam@example.com", Password: "wrong-password"})
	requireError(t, rec, http.StatusUnauthorized, "Invalid credentials")

	rec = env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "nobody@example.com", Password: testPassword})
	requireError(t, rec, http.StatusUnauthorized, "Invalid credentials")
}

func TestLoginBruteForceGuard(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.BruteForceMax = 2
		o.FailureCounter = middleware.NewMemoryFailureCounter(0, time.Minute)
	})
	env.user("sam", false)

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "sam@example.com", Password: "wrong-password"})
		requireStatus(t, rec, http.StatusUnauthorized)
	}
	rec := env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "sam@example.com", Password: testPassword})
	requireStatus(t, rec, http.StatusTooManyRequests)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.AuthLimiter = middleware.NewMemoryLimiter(middleware.RateLimitConfig{Name: "auth", Requests: 1, Window: time.Hour}, 0)
	})
	env.user("sam", false)

	rec := env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "sam@example.com", Password: testPassword})
	requireStatus(t, rec, http.StatusOK)
	rec = env.do(http.MethodPost, "/api/users/login", "", LoginRequest{Email: "sam@example.com", Password: testPassword})
	requireError(t, rec, http.StatusTooManyRequests, middleware.MsgTooManyRequests)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.user("sam", false)
	tok := env.token(u)

	requireStatus(t, env.do(http.MethodGet, "/api/users/me", tok, nil), http.StatusOK)
	requireStatus(t, env.do(http.MethodPost, "/api/users/logout", tok, nil), http.StatusOK)
	requireStatus(t, env.do(http.MethodGet, "/api/users/me", tok, nil), http.StatusUnauthorized)
}

func TestLogoutAcceptsAnySchemeCase(t *testing.T) {
	env := newTestEnv(t)
	u := env.user("sam", false)
	tok := env.token(u)

	req := httptest.NewRequest(http.MethodPost, "/api/users/logout", nil)
	req.Header.Set("Authorization", "bearer "+tok)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	requireStatus(t, rec, http.StatusOK)

	requireStatus(t, env.do(http.MethodGet, "/api/users/me", tok, nil), http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	lead := env.user("lead", false)
	team := env.team("Alpha", lead)

	rec := env.do(http.MethodGet, "/api/users/me", env.token(lead), nil)
	requireStatus(t, rec, http.StatusOK)

	var p auth.Principal
	decode(t, rec, &p)
	assert.Equal(t, lead.ID, p.ID)
	assert.Equal(t, auth.RoleTeamLead, p.Role)
	assert.Equal(t, team.ID, p.TeamID)

	requireError(t, env.do(http.MethodGet, "/api/users/me", "", nil), http.StatusUnauthorized, "Authentication required")
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", true)
	loner := env.user("loner", false)

	rec := env.do(http.MethodGet, "/api/users", env.token(admin), nil)
	requireStatus(t, rec, http.StatusOK)
	var users []storage.User
	body := decode(t, rec, &users)
	require.NotNil(t, body.Count)
	assert.Equal(t, 2, *body.Count)

	requireStatus(t, env.do(http.MethodGet, "/api/users", env.token(loner), nil), http.StatusForbidden)
}
