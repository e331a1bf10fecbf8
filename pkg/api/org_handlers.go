package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/orgs"
)

// OrgHandlers handles organization-related HTTP requests
type OrgHandlers struct {
	service *orgs.Service
}

// NewOrgHandlers creates a new OrgHandlers
func NewOrgHandlers(service *orgs.Service) *OrgHandlers {
	return &OrgHandlers{service: service}
}

// RegisterRoutes registers organization routes under /api/orgs
func (h *OrgHandlers) RegisterRoutes(router *mux.Router, s *Server) {
	router.Handle("", s.gated(h.createOrganization, adminOnly, s.demo)).Methods(http.MethodPost)
	router.Handle("", s.gated(h.listOrganizations, adminOnly)).Methods(http.MethodGet)
	router.Handle("/{orgId}", s.gated(h.getOrganization, leadOrAdmin)).Methods(http.MethodGet)
	router.Handle("/{orgId}", s.gated(h.updateOrganization, adminOnly, s.demo)).Methods(http.MethodPatch, http.MethodPut)
	router.Handle("/{orgId}", s.gated(h.deleteOrganization, adminOnly, s.demo)).Methods(http.MethodDelete)
}

// createOrganization handles POST /api/orgs
func (h *OrgHandlers) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req orgs.CreateInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())

	org, err := h.service.Create(r.Context(), req, p.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, org)
}

// listOrganizations handles GET /api/orgs?page=&limit=
func (h *OrgHandlers) listOrganizations(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.QueryInt(r, "page", 1)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	limit, err := httputil.QueryInt(r, "limit", orgs.DefaultPageSize)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	result, err := h.service.List(r.Context(), orgs.PageRequest{Page: page, Limit: limit})
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, result)
}

// getOrganization handles GET /api/orgs/{orgId}
func (h *OrgHandlers) getOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "orgId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	org, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, org)
}

// updateOrganization handles PATCH /api/orgs/{orgId}
func (h *OrgHandlers) updateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "orgId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	var req orgs.UpdateInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	org, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, org)
}

// deleteOrganization handles DELETE /api/orgs/{orgId}
func (h *OrgHandlers) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "orgId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, http.StatusOK, "Organization deleted successfully")
}
