package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "User already exists"
)

// dummyHash is compared against when the email is unknown so that unknown
// and known emails take the same time
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOHiA6fQ5n5Yt1Xc6x3U2Gx1uJrj2lq5K"

// RegisterRequest is the body of POST /api/users/register
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=member team_lead admin"`
}

// LoginRequest is the body of POST /api/users/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginUser is the user part of a login response
type LoginUser struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	IsAdmin bool              `json:"isAdmin"`
	Role    auth.Role         `json:"role"`
	TeamID  string            `json:"teamId,omitempty"`
	Teams   []auth.TeamAccess `json:"teams"`
}

// LoginResponse is the data of a successful login
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	store    storage.UserStore
	tokens   *auth.TokenService
	resolver *membership.Resolver
	guard    *middleware.BruteForceGuard
	metrics  *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(store storage.Store, tokens *auth.TokenService, guard *middleware.BruteForceGuard, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		store:    store,
		tokens:   tokens,
		resolver: membership.NewResolver(store, metrics),
		guard:    guard,
		metrics:  metrics,
	}
}

// RegisterRoutes registers authentication routes under /api/users
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, s *Server) {
	authLimit := middleware.RateLimit(s.opts.AuthLimiter, s.opts.Metrics)

	router.Handle("/register", authLimit(http.HandlerFunc(h.register))).Methods(http.MethodPost)
	router.Handle("/login", authLimit(h.guard.Handler(http.HandlerFunc(h.login)))).Methods(http.MethodPost)
	router.Handle("/logout", s.authenticated(h.logout)).Methods(http.MethodPost)
	router.Handle("/me", s.authenticated(h.me)).Methods(http.MethodGet)
	router.Handle("", s.gated(h.listUsers, leadOrAdmin)).Methods(http.MethodGet)
	router.Handle("/", s.gated(h.listUsers, leadOrAdmin)).Methods(http.MethodGet)
}

// register handles POST /api/users/register. The requested role is stored
// for review only; it grants neither admin rights nor a membership.
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}
	user := &storage.User{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:  hash,
		RequestedRole: req.Role,
		AuthProvider:  "local",
	}

	if _, err := h.store.GetUserByEmail(r.Context(), user.Email); err == nil {
		httputil.WriteAppError(w, r, apperr.Conflict(msgUserExists))
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			httputil.WriteAppError(w, r, apperr.Conflict(msgUserExists))
			return
		}
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}

	audit.Record(r.Context(), audit.NewEvent(r.Context(), audit.EventTypeAuthRegister, audit.EventStatusSuccess).
		ForRequest(r).
		On(audit.ResourceTypeUser, user.ID).
		By(user.ID).
		With("requested_role", req.Role))
	_ = httputil.WriteCreated(w, user)
}

// login handles POST /api/users/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}

	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.VerifyPassword(req.Password, hash) || user == nil {
		h.guard.Fail(r)
		h.metrics.RecordLogin("failure")
		audit.Record(r.Context(), audit.NewEvent(r.Context(), audit.EventTypeAuthLoginFailed, audit.EventStatusFailure).
			ForRequest(r).
			Because("invalid_credentials"))
		httputil.WriteAppError(w, r, apperr.Unauthenticated(msgInvalidCredentials).WithReason("invalid_credentials"))
		return
	}

	h.guard.Succeed(r)
	h.CompleteLogin(w, r, user)
}

// CompleteLogin issues a token for user and writes the login response. The
// teams list starts with the primary team.
func (h *AuthHandlers) CompleteLogin(w http.ResponseWriter, r *http.Request, user *storage.User) {
	principal, err := h.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}

	token, claims, err := h.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}

	h.metrics.RecordLogin("success")
	audit.Record(r.Context(), audit.NewEvent(r.Context(), audit.EventTypeAuthLogin, audit.EventStatusSuccess).
		ForRequest(r).
		On(audit.ResourceTypeToken, claims.ID).
		By(user.ID).
		With("provider", user.AuthProvider))

	_ = httputil.WriteSuccess(w, LoginResponse{
		Token: token,
		User: LoginUser{
			ID:      principal.ID,
			Name:    principal.Name,
			Email:   principal.Email,
			IsAdmin: principal.IsAdmin,
			Role:    principal.Role,
			TeamID:  principal.TeamID,
			Teams:   membership.OrderByPrimary(principal.Teams, principal.TeamID),
		},
	})
}

// logout handles POST /api/users/logout by revoking the presented token
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	raw, _ := middleware.BearerToken(r)
	claims, err := h.tokens.Verify(r.Context(), raw)
	if err != nil {
		httputil.WriteAppError(w, r, apperr.Wrap(apperr.KindUnauthenticated, "Invalid token", err))
		return
	}
	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}

	audit.Record(r.Context(), audit.NewEvent(r.Context(), audit.EventTypeAuthLogout, audit.EventStatusSuccess).
		ForRequest(r).
		On(audit.ResourceTypeToken, claims.ID).
		By(claims.Subject))
	_ = httputil.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// me handles GET /api/users/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	_ = httputil.WriteSuccess(w, p)
}

// listUsers handles GET /api/users
func (h *AuthHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}
	if users == nil {
		users = []*storage.User{}
	}
	_ = httputil.WriteList(w, users, len(users))
}
