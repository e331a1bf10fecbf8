// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/observability"
)

// Envelope is the body shape of every API response
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// Count and Total accompany list responses
	Count *int `json:"count,omitempty"`
	Total *int `json:"total,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteData writes {success:true, data}
func WriteData(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteSuccess writes a 200 {success:true, data}
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusOK, data)
}

// WriteCreated writes a 201 {success:true, data}
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusCreated, data)
}

// WriteList writes a 200 list response with its count
func WriteList(w http.ResponseWriter, data interface{}, count int) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

// WritePage writes a 200 page with the page size and overall total
func WritePage(w http.ResponseWriter, data interface{}, count, total int) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count, Total: &total})
}

// WriteMessage writes {success:true, message}
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, Envelope{Success: true, Message: message})
}

// WriteErrorMessage writes {success:false, message}
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, Envelope{Success: false, Message: message})
}

// WriteAppError classifies err and writes the matching status and public
// message. Server errors are logged with their cause; the body only ever
// carries the generic message.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)

	logger := observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"kind":   appErr.Kind.String(),
		"method": r.Method,
		"path":   r.URL.Path,
	})
	if appErr.Reason != "" {
		logger = logger.WithField("reason", appErr.Reason)
	}
	if appErr.Kind == apperr.KindServer {
		logger.WithError(appErr).Error("Request failed")
	} else {
		logger.Debug(appErr.Error())
	}

	WriteErrorMessage(w, appErr.Kind.Status(), appErr.PublicMessage())
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
