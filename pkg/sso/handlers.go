package sso

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

const msgLoginFailed = "Google sign-in failed"

// LoginCompleter finishes a login for an authenticated user, typically by
// issuing a token and writing the login response
type LoginCompleter interface {
	CompleteLogin(w http.ResponseWriter, r *http.Request, user *storage.User)
}

// Handlers serves the provider login and callback routes
type Handlers struct {
	provider    Provider
	provisioner *Provisioner
	completer   LoginCompleter
	state       *stateSigner
	secure      bool
}

// NewHandlers creates SSO handlers. sessionSecret signs the state cookie.
func NewHandlers(provider Provider, provisioner *Provisioner, completer LoginCompleter, sessionSecret string) *Handlers {
	return &Handlers{
		provider:    provider,
		provisioner: provisioner,
		completer:   completer,
		state:       &stateSigner{secret: []byte(sessionSecret), now: time.Now},
		secure:      true,
	}
}

// RegisterRoutes registers the Google routes on router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/google", h.login).Methods(http.MethodGet)
	router.HandleFunc("/google/callback", h.callback).Methods(http.MethodGet)
}

// login handles GET /google
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	state, cookie, err := h.state.issue()
	if err != nil {
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    cookie,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// callback handles GET /google/callback
func (h *Handlers) callback(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	h.clearState(w)

	var cookie string
	if c, err := r.Cookie(StateCookieName); err == nil {
		cookie = c.Value
	}
	if err := h.state.check(r.URL.Query().Get("state"), cookie); err != nil {
		h.fail(w, r, "invalid_state", apperr.Unauthenticated(msgLoginFailed))
		return
	}

	if reason := r.URL.Query().Get("error"); reason != "" {
		h.fail(w, r, "provider_error", apperr.Unauthenticated(msgLoginFailed))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, "missing_code", apperr.Validation("Authorization code is required"))
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		logger.WithError(err).Warn("OIDC code exchange failed")
		h.fail(w, r, "exchange_failed", apperr.Unauthenticated(msgLoginFailed))
		return
	}

	user, err := h.provisioner.Provision(r.Context(), identity)
	switch {
	case errors.Is(err, ErrEmailNotVerified), errors.Is(err, ErrMissingEmail):
		h.fail(w, r, "email_not_verified", apperr.Unauthenticated(msgLoginFailed))
		return
	case err != nil:
		httputil.WriteAppError(w, r, apperr.Server(err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"provider": ProviderGoogle,
	}).Info("OIDC login succeeded")
	h.completer.CompleteLogin(w, r, user)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, reason string, err *apperr.Error) {
	audit.Record(r.Context(), audit.NewEvent(r.Context(), audit.EventTypeAuthLoginFailed, audit.EventStatusFailure).
		ForRequest(r).
		Because(reason).
		With("provider", ProviderGoogle))
	httputil.WriteAppError(w, r, err.WithReason(reason))
}

func (h *Handlers) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
