package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/orgs"
	"github.com/platinummonkey/taskforge/pkg/projects"
	"github.com/platinummonkey/taskforge/pkg/sso"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

const (
	defaultMaxBodyBytes     = 10 << 20
	defaultBruteForceMax    = 10
	defaultBruteForceWindow = 15 * time.Minute
)

// Options wires the server's collaborators. Store and Tokens are required;
// everything else has a working default.
type Options struct {
	Store   storage.Store
	Tokens  *auth.TokenService
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Audit   audit.Logger

	// AuthTimeout bounds token verification plus principal resolution
	AuthTimeout time.Duration

	// APILimiter and AuthLimiter default to in-memory limiters with the
	// general and auth budgets
	APILimiter  middleware.Limiter
	AuthLimiter middleware.Limiter

	// FailureCounter defaults to an in-memory counter
	FailureCounter   middleware.FailureCounter
	BruteForceMax    int
	BruteForceWindow time.Duration

	DemoEmails   []string
	CORSOrigins  []string
	MaxBodyBytes int64

	// OIDC enables Google sign-in when set; SessionSecret signs its state
	OIDC          sso.Provider
	SessionSecret string

	// ServiceName names the otelhttp server span
	ServiceName string
}

// Server represents our API server
type Server struct {
	opts    Options
	router  *mux.Router
	handler http.Handler

	identity *middleware.Identity
	roles    *middleware.RoleGate
	scopes   *middleware.ScopeGate
	demo     httputil.Middleware

	authHandlers    *AuthHandlers
	teamHandlers    *TeamHandlers
	projectHandlers *ProjectHandlers
	orgHandlers     *OrgHandlers
	ssoHandlers     *sso.Handlers
}

// NewServer creates a new API server with all routes registered
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token service is required")
	}
	opts = withDefaults(opts)

	resolver := membership.NewResolver(opts.Store, opts.Metrics)
	guard := middleware.NewBruteForceGuard(opts.FailureCounter, opts.BruteForceMax, opts.BruteForceWindow, opts.Metrics)

	s := &Server{
		opts:     opts,
		router:   mux.NewRouter(),
		identity: middleware.NewIdentity(opts.Tokens, resolver, opts.AuthTimeout, opts.Metrics),
		roles:    middleware.NewRoleGate(opts.Metrics),
		scopes:   middleware.NewScopeGate(opts.Store, opts.Metrics),
		demo:     middleware.DemoGuard(opts.DemoEmails),

		authHandlers:    NewAuthHandlers(opts.Store, opts.Tokens, guard, opts.Metrics),
		teamHandlers:    NewTeamHandlers(membership.NewService(opts.Store, opts.Metrics)),
		projectHandlers: NewProjectHandlers(projects.NewService(opts.Store)),
		orgHandlers:     NewOrgHandlers(orgs.NewService(opts.Store)),
	}
	if opts.OIDC != nil {
		s.ssoHandlers = sso.NewHandlers(opts.OIDC, sso.NewProvisioner(opts.Store), s.authHandlers, opts.SessionSecret)
	}

	s.setupRoutes()
	s.handler = s.wrap(s.router)
	return s, nil
}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewStructuredLogger(opts.Logger)
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = middleware.DefaultAuthTimeout
	}
	if opts.APILimiter == nil {
		opts.APILimiter = middleware.NewMemoryLimiter(middleware.DefaultRateLimitConfig(), 0)
	}
	if opts.AuthLimiter == nil {
		opts.AuthLimiter = middleware.NewMemoryLimiter(middleware.AuthRateLimitConfig(), 0)
	}
	if opts.BruteForceMax <= 0 {
		opts.BruteForceMax = defaultBruteForceMax
	}
	if opts.BruteForceWindow <= 0 {
		opts.BruteForceWindow = defaultBruteForceWindow
	}
	if opts.FailureCounter == nil {
		opts.FailureCounter = middleware.NewMemoryFailureCounter(0, opts.BruteForceWindow)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "taskforge-api"
	}
	return opts
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "Route not found")
	})

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(middleware.RateLimit(s.opts.APILimiter, s.opts.Metrics))

	s.authHandlers.RegisterRoutes(api.PathPrefix("/users").Subrouter(), s)
	if s.ssoHandlers != nil {
		google := api.PathPrefix("/users/auth").Subrouter()
		google.Use(middleware.RateLimit(s.opts.AuthLimiter, s.opts.Metrics))
		s.ssoHandlers.RegisterRoutes(google)
	}
	s.teamHandlers.RegisterRoutes(api, s)
	s.projectHandlers.RegisterRoutes(api, s)
	s.orgHandlers.RegisterRoutes(api.PathPrefix("/orgs").Subrouter(), s)
}

// wrap applies the cross-cutting middleware shared by every route
func (s *Server) wrap(h http.Handler) http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.opts.Logger),
		httputil.RecoveryMiddleware,
		httputil.SecurityHeadersMiddleware,
		httputil.CORSMiddleware(s.opts.CORSOrigins),
		httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes),
		audit.Middleware(s.opts.Audit),
	)
	return otelhttp.NewHandler(chain(h), s.opts.ServiceName)
}

// Handler returns the fully wrapped handler to serve
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table, mainly for route listing
func (s *Server) Router() *mux.Router {
	return s.router
}

// authenticated runs h behind Identity and then mws in order
func (s *Server) authenticated(h http.HandlerFunc, mws ...httputil.Middleware) http.Handler {
	all := append([]httputil.Middleware{s.identity.Handler}, mws...)
	return httputil.Chain(all...)(h)
}

// gated is authenticated with a role gate in front of mws
func (s *Server) gated(h http.HandlerFunc, roles []auth.Role, mws ...httputil.Middleware) http.Handler {
	all := append([]httputil.Middleware{s.roles.Require(roles...)}, mws...)
	return s.authenticated(h, all...)
}

// role allow-lists used across the route table
var (
	anyRole     = []auth.Role{auth.RoleAdmin, auth.RoleTeamLead, auth.RoleTeamMember}
	leadOrAdmin = []auth.Role{auth.RoleAdmin, auth.RoleTeamLead}
	adminOnly   = []auth.Role{auth.RoleAdmin}
)
