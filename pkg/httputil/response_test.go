package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskforge/pkg/apperr"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteList(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteList(rec, []string{"a", "b"}, 2))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])
	assert.NotContains(t, body, "total")
}

func TestWritePage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WritePage(rec, []int{1}, 1, 40))

	body := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, float64(40), body["total"])
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"unauthenticated", apperr.Unauthenticated("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{"forbidden", apperr.Forbidden("Admin access required"), http.StatusForbidden, "Admin access required"},
		{"not found", apperr.NotFound("Project not found"), http.StatusNotFound, "Project not found"},
		{"validation", apperr.Validation("email is required"), http.StatusBadRequest, "email is required"},
		{"conflict", apperr.Conflict("User already exists"), http.StatusConflict, "User already exists"},
		{"unavailable", apperr.Unavailable("Service temporarily unavailable"), http.StatusServiceUnavailable, "Service temporarily unavailable"},
		{"too many", apperr.TooManyRequests("Too many requests, please try again later."), http.StatusTooManyRequests, "Too many requests, please try again later."},
		{"unclassified hides cause", errors.New("pq: connection refused"), http.StatusInternalServerError, apperr.ServerErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)

			WriteAppError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeEnvelope(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMessage, body["message"])
		})
	}
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
