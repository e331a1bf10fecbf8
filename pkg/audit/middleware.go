package audit

import (
	"net/http"
	"time"

	"github.com/platinummonkey/taskforge/pkg/contextkeys"
)

// Middleware makes logger available to downstream handlers through the
// request context and stamps the request start time
func Middleware(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLogger(r.Context(), logger)
			ctx = contextkeys.WithRequestStartTime(ctx, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
