package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/apperr"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=member team_lead"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"secret1"}`))
		var body loginBody
		require.NoError(t, DecodeJSON(req, &body))
		assert.Equal(t, "a@b.co", body.Email)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		err := DecodeJSON(req, &loginBody{})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, "Request body is required", apperr.As(err).PublicMessage())
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		err := DecodeJSON(req, &loginBody{})
		assert.Equal(t, "Invalid JSON", apperr.As(err).PublicMessage())
	})

	t.Run("too large", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 64)+`"}`))
		req.Body = http.MaxBytesReader(rec, req.Body, 16)
		err := DecodeJSON(req, &loginBody{})
		assert.Equal(t, "Request body too large", apperr.As(err).PublicMessage())
	})
}

func TestValidateMessages(t *testing.T) {
	err := Validate(&loginBody{Email: "nope", Password: "123", Role: "admin"})
	require.Error(t, err)

	msg := apperr.As(err).PublicMessage()
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "password must be at least 6 characters")
	assert.Contains(t, msg, "role must be one of: member, team_lead")

	err = Validate(&loginBody{})
	assert.Contains(t, apperr.As(err).PublicMessage(), "email is required")
}

func TestPathParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/projects/p1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "p1"})

	val, err := PathParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, "p1", val)

	_, err = PathParam(req, "taskId")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orgs?limit=5&offset=x", nil)

	v, err := QueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = QueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = QueryInt(req, "offset", 0)
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}
