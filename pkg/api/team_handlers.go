package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// CreateTeamRequest is the body of POST /api/teams
type CreateTeamRequest struct {
	Name           string   `json:"name" validate:"required,max=100"`
	Description    string   `json:"description" validate:"max=1000"`
	TeamLeadID     string   `json:"teamLeadId" validate:"required"`
	MemberIDs      []string `json:"memberIds"`
	OrganizationID string   `json:"organizationId,omitempty"`
}

// UpdateTeamRequest is the body of PATCH /api/teams/{teamId}
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// AddMemberRequest is the body of POST /api/team-members/{teamId}/members
type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=team_lead team_member admin"`
}

// UpdateRoleRequest is the body of PATCH /api/team-members/{teamId}/{userId}/role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=team_lead team_member admin"`
}

// TeamHandlers handles team and team membership HTTP requests
type TeamHandlers struct {
	service *membership.Service
}

// NewTeamHandlers creates a new TeamHandlers
func NewTeamHandlers(service *membership.Service) *TeamHandlers {
	return &TeamHandlers{service: service}
}

// RegisterRoutes registers /api/teams and /api/team-members routes
func (h *TeamHandlers) RegisterRoutes(router *mux.Router, s *Server) {
	teamPath := middleware.PathVar("teamId")
	teamAccess := s.scopes.RequireTeamAccess(teamPath)
	teamLead := s.scopes.RequireTeamLead(teamPath)

	teams := router.PathPrefix("/teams").Subrouter()
	teams.Handle("", s.gated(h.createTeam, adminOnly, s.demo)).Methods(http.MethodPost)
	teams.Handle("", s.gated(h.listTeams, leadOrAdmin)).Methods(http.MethodGet)
	teams.Handle("/{teamId}", s.gated(h.getTeam, anyRole, teamAccess)).Methods(http.MethodGet)
	teams.Handle("/{teamId}", s.gated(h.updateTeam, leadOrAdmin, s.demo, teamLead)).Methods(http.MethodPatch)
	teams.Handle("/{teamId}", s.gated(h.deleteTeam, adminOnly, s.demo, teamAccess)).Methods(http.MethodDelete)

	members := router.PathPrefix("/team-members").Subrouter()
	members.Handle("/my-teams", s.authenticated(h.myTeams)).Methods(http.MethodGet)
	members.Handle("/{teamId}", s.gated(h.listMembers, leadOrAdmin, teamLead)).Methods(http.MethodGet)
	members.Handle("/{teamId}/members", s.gated(h.addMember, leadOrAdmin, s.demo, teamLead)).Methods(http.MethodPost)
	members.Handle("/{teamId}/members/{userId}", s.gated(h.removeMember, leadOrAdmin, s.demo, teamLead)).Methods(http.MethodDelete)
	members.Handle("/{teamId}/{userId}/role", s.gated(h.updateRole, leadOrAdmin, s.demo, teamLead)).Methods(http.MethodPatch)
	members.Handle("/{teamId}/{userId}", s.gated(h.getMember, leadOrAdmin, teamLead)).Methods(http.MethodGet)
}

// createTeam handles POST /api/teams
func (h *TeamHandlers) createTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	team, err := h.service.CreateTeam(r.Context(), membership.CreateTeamInput{
		Name:           req.Name,
		Description:    req.Description,
		OrganizationID: req.OrganizationID,
		TeamLeadID:     req.TeamLeadID,
		MemberIDs:      req.MemberIDs,
	})
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, team)
}

// listTeams handles GET /api/teams
func (h *TeamHandlers) listTeams(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	teams, err := h.service.ListTeams(r.Context(), p)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if teams == nil {
		teams = []*storage.Team{}
	}
	_ = httputil.WriteList(w, teams, len(teams))
}

// getTeam handles GET /api/teams/{teamId}; the scope gate has loaded the team
func (h *TeamHandlers) getTeam(w http.ResponseWriter, r *http.Request) {
	team, _ := middleware.TeamFromContext(r.Context())
	_ = httputil.WriteSuccess(w, team)
}

// updateTeam handles PATCH /api/teams/{teamId}
func (h *TeamHandlers) updateTeam(w http.ResponseWriter, r *http.Request) {
	var req UpdateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	team, _ := middleware.TeamFromContext(r.Context())

	updated, err := h.service.UpdateTeam(r.Context(), team.ID, membership.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, updated)
}

// deleteTeam handles DELETE /api/teams/{teamId}
func (h *TeamHandlers) deleteTeam(w http.ResponseWriter, r *http.Request) {
	team, _ := middleware.TeamFromContext(r.Context())
	if err := h.service.DeactivateTeam(r.Context(), team.ID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, http.StatusOK, "Team deleted successfully")
}

// myTeams handles GET /api/team-members/my-teams
func (h *TeamHandlers) myTeams(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	teams, err := h.service.MyTeams(r.Context(), p.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	writeMemberships(w, teams)
}

// listMembers handles GET /api/team-members/{teamId}
func (h *TeamHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	team, _ := middleware.TeamFromContext(r.Context())
	members, err := h.service.ListMembers(r.Context(), team.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	writeMemberships(w, members)
}

// getMember handles GET /api/team-members/{teamId}/{userId}
func (h *TeamHandlers) getMember(w http.ResponseWriter, r *http.Request) {
	team, _ := middleware.TeamFromContext(r.Context())
	userID, err := httputil.PathParam(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	m, err := h.service.GetMember(r.Context(), team.ID, userID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, m)
}

// addMember handles POST /api/team-members/{teamId}/members. It answers 201
// for a new membership and 200 for a reactivated one.
func (h *TeamHandlers) addMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	team, _ := middleware.TeamFromContext(r.Context())

	m, outcome, err := h.service.AddMember(r.Context(), team.ID, req.UserID, storage.MembershipRole(req.Role))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if outcome == membership.Reactivated {
		_ = httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Success: true, Message: "Member reactivated", Data: m})
		return
	}
	_ = httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Message: "Member added", Data: m})
}

// removeMember handles DELETE /api/team-members/{teamId}/members/{userId}
func (h *TeamHandlers) removeMember(w http.ResponseWriter, r *http.Request) {
	team, _ := middleware.TeamFromContext(r.Context())
	userID, err := httputil.PathParam(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), team.ID, userID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, http.StatusOK, "Member removed")
}

// updateRole handles PATCH /api/team-members/{teamId}/{userId}/role
func (h *TeamHandlers) updateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	team, _ := middleware.TeamFromContext(r.Context())
	userID, err := httputil.PathParam(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	m, err := h.service.UpdateRole(r.Context(), team.ID, userID, storage.MembershipRole(req.Role))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Success: true, Message: "Role updated", Data: m})
}

func writeMemberships(w http.ResponseWriter, ms []*storage.MembershipDetail) {
	if ms == nil {
		ms = []*storage.MembershipDetail{}
	}
	_ = httputil.WriteList(w, ms, len(ms))
}
