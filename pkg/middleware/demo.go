package middleware

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/httputil"
)

// MsgDemoReadOnly is returned when a demo account tries to write
const MsgDemoReadOnly = "Demo account cannot modify data"

// DemoGuard makes the listed accounts read-only. It must run after Identity.
func DemoGuard(emails []string) func(http.Handler) http.Handler {
	demo := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			demo[e] = true
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if ok && demo[strings.ToLower(p.Email)] && !safeMethod(r.Method) {
				audit.Record(r.Context(), audit.NewEvent(r.Context(), audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
					ForRequest(r).
					On(audit.ResourceTypeRoute, r.URL.Path).
					Because("demo_account"))
				httputil.WriteAppError(w, r, apperr.Forbidden(MsgDemoReadOnly).WithReason("demo_account"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
