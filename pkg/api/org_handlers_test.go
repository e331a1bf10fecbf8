package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/orgs"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

func TestOrganizationCRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", true)
	tok := env.token(admin)

	rec := env.do(http.MethodPost, "/api/orgs", tok, orgs.CreateInput{Name: "Acme"})
	requireStatus(t, rec, http.StatusCreated)
	var org storage.Organization
	decode(t, rec, &org)
	assert.Equal(t, []string{admin.ID}, org.Admins)

	rec = env.do(http.MethodPost, "/api/orgs", tok, orgs.CreateInput{Name: "Acme"})
	requireError(t, rec, http.StatusConflict, "Organization with this name already exists")

	env.do(http.MethodPost, "/api/orgs", tok, orgs.CreateInput{Name: "Globex"})

	rec = env.do(http.MethodGet, "/api/orgs?page=1&limit=1", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	var page orgs.Page
	decode(t, rec, &page)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pages)

	name := "Acme Corp"
	rec = env.do(http.MethodPatch, "/api/orgs/"+org.ID, tok, orgs.UpdateInput{Name: &name})
	requireStatus(t, rec, http.StatusOK)

	rec = env.do(http.MethodGet, "/api/orgs/"+org.ID, tok, nil)
	var fetched storage.Organization
	decode(t, rec, &fetched)
	assert.Equal(t, name, fetched.Name)

	requireStatus(t, env.do(http.MethodDelete, "/api/orgs/"+org.ID, tok, nil), http.StatusOK)
	requireError(t, env.do(http.MethodGet, "/api/orgs/"+org.ID, tok, nil), http.StatusNotFound, "Organization not found")
}

func TestOrganizationAccess(t *testing.T) {
	env := newTestEnv(t)
	lead := env.user("lead", false)
	env.team("Alpha", lead)

	requireError(t, env.do(http.MethodPost, "/api/orgs", env.token(lead), orgs.CreateInput{Name: "Acme"}),
		http.StatusForbidden, "Admin access required")
	requireStatus(t, env.do(http.MethodGet, "/api/orgs", env.token(lead), nil), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodGet, "/api/orgs?page=x", env.token(env.user("root", true)), nil), http.StatusBadRequest)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/nothing-here", "", nil)
	requireError(t, rec, http.StatusNotFound, "Route not found")
}

func TestNewServerRequiresStoreAndTokens(t *testing.T) {
	_, err := NewServer(Options{})
	require.Error(t, err)
}
