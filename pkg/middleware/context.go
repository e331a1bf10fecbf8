package middleware

import (
	"context"

	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/contextkeys"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// PrincipalFromContext returns the principal attached by Identity
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*auth.Principal)
	return p, ok && p != nil
}

// ProjectFromContext returns the project attached by RequireProjectAccess
func ProjectFromContext(ctx context.Context) (*storage.Project, bool) {
	p, ok := ctx.Value(contextkeys.ProjectKey).(*storage.Project)
	return p, ok && p != nil
}

// TaskFromContext returns the task attached by RequireTaskAccess
func TaskFromContext(ctx context.Context) (*storage.Task, bool) {
	t, ok := ctx.Value(contextkeys.TaskKey).(*storage.Task)
	return t, ok && t != nil
}

// TeamFromContext returns the team attached by RequireTeamAccess or
// RequireTeamLead
func TeamFromContext(ctx context.Context) (*storage.Team, bool) {
	t, ok := ctx.Value(contextkeys.TeamKey).(*storage.Team)
	return t, ok && t != nil
}

// MembershipFromContext returns the membership that admitted a non-admin
// principal. Admins admitted by bypass have none.
func MembershipFromContext(ctx context.Context) (auth.TeamAccess, bool) {
	m, ok := ctx.Value(contextkeys.MembershipKey).(auth.TeamAccess)
	return m, ok
}

// WithPrincipal attaches p to ctx along with its user id for logging
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	ctx = contextkeys.WithPrincipal(ctx, p)
	return contextkeys.WithUserID(ctx, p.ID)
}
