package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/observability"
)

// DefaultAuthTimeout bounds token verification plus principal resolution
const DefaultAuthTimeout = 2 * time.Second

const (
	msgAuthRequired = "Authentication required"
	msgInvalidToken = "Invalid token"
	msgTokenExpired = "Token expired"
	msgUnavailable  = "Service temporarily unavailable"
)

// TokenVerifier checks a bearer token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// PrincipalResolver derives a principal from a user id
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID string) (*auth.Principal, error)
}

// Identity authenticates requests and attaches the resolved principal
type Identity struct {
	tokens   TokenVerifier
	resolver PrincipalResolver
	timeout  time.Duration
	metrics  *observability.Metrics
}

// NewIdentity creates the identity middleware. A non-positive timeout uses
// DefaultAuthTimeout; metrics may be nil.
func NewIdentity(tokens TokenVerifier, resolver PrincipalResolver, timeout time.Duration, metrics *observability.Metrics) *Identity {
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	return &Identity{tokens: tokens, resolver: resolver, timeout: timeout, metrics: metrics}
}

// Handler requires a valid bearer token for a user that still exists
func (m *Identity) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := BearerToken(r)
		if !ok {
			m.reject(w, r, apperr.Unauthenticated(msgAuthRequired).WithReason("missing_token"))
			return
		}

		// the timeout covers verification and resolution only
		authCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		start := time.Now()
		claims, err := m.tokens.Verify(authCtx, token)
		if err != nil {
			reason := verifyReason(err)
			m.metrics.ObserveTokenVerify(reason, time.Since(start))
			message := msgInvalidToken
			if reason == "expired" {
				message = msgTokenExpired
			}
			m.reject(w, r, apperr.Wrap(apperr.KindUnauthenticated, message, err).WithReason(reason))
			return
		}
		m.metrics.ObserveTokenVerify("ok", time.Since(start))

		principal, err := m.resolver.Resolve(authCtx, claims.Subject)
		switch {
		case errors.Is(err, membership.ErrUserNotFound):
			m.reject(w, r, apperr.Unauthenticated(msgInvalidToken).WithReason("user_not_found"))
			return
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			m.reject(w, r, apperr.Wrap(apperr.KindUnavailable, msgUnavailable, err).WithReason("resolve_timeout"))
			return
		case err != nil:
			m.reject(w, r, apperr.Server(err).WithReason("resolve_failed"))
			return
		}
		principal.TokenID = claims.ID

		ctx = WithPrincipal(ctx, principal)
		m.metrics.RecordAuthDecision(ctx, "identity", "allow", "ok")

		observability.FromContext(ctx).WithFields(map[string]interface{}{
			"subject":    principal.ID,
			"role":       string(principal.Role),
			"team_count": len(principal.Teams),
		}).Info("Principal resolved")
		audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthAuthenticated, audit.EventStatusSuccess).
			ForRequest(r).
			On(audit.ResourceTypeUser, principal.ID).
			With("role", string(principal.Role)).
			With("team_count", len(principal.Teams)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Identity) reject(w http.ResponseWriter, r *http.Request, err *apperr.Error) {
	ctx := r.Context()
	m.metrics.RecordAuthDecision(ctx, "identity", "deny", err.Reason)

	status := audit.EventStatusFailure
	if err.Kind == apperr.KindUnauthenticated {
		status = audit.EventStatusDenied
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+err.Reason+`"`)
	}
	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthTokenInvalid, status).
		ForRequest(r).
		On(audit.ResourceTypeToken, "").
		Because(err.Reason))

	httputil.WriteAppError(w, r, err)
}

// BearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "invalid"
	}
}

// RoleGate is the coarse check against a principal's primary role
type RoleGate struct {
	metrics *observability.Metrics
}

// NewRoleGate creates a role gate. metrics may be nil.
func NewRoleGate(metrics *observability.Metrics) *RoleGate {
	return &RoleGate{metrics: metrics}
}

// Require admits admins when RoleAdmin is listed and anyone whose primary
// role is listed. It must run after Identity.
func (g *RoleGate) Require(roles ...auth.Role) func(http.Handler) http.Handler {
	message := roleMessage(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := PrincipalFromContext(ctx)
			if !ok {
				httputil.WriteAppError(w, r, apperr.Unauthenticated(msgAuthRequired))
				return
			}
			if !p.HasAnyRole(roles...) {
				g.metrics.RecordAuthDecision(ctx, "role", "deny", "role_mismatch")
				audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
					ForRequest(r).
					On(audit.ResourceTypeRoute, r.URL.Path).
					Because("role_mismatch").
					With("role", string(p.Role)))
				httputil.WriteAppError(w, r, apperr.Forbidden(message).WithReason("role_mismatch"))
				return
			}
			g.metrics.RecordAuthDecision(ctx, "role", "allow", string(p.Role))
			next.ServeHTTP(w, r)
		})
	}
}

var roleNames = map[auth.Role]string{
	auth.RoleAdmin:      "admin",
	auth.RoleTeamLead:   "team lead",
	auth.RoleTeamMember: "team member",
}

// roleMessage renders e.g. "Admin or team lead access required"
func roleMessage(roles []auth.Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if n, ok := roleNames[r]; ok {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "Access denied"
	}
	msg := strings.Join(names, " or ") + " access required"
	return strings.ToUpper(msg[:1]) + msg[1:]
}
