package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// ErrUserNotFound is returned when the subject of a token no longer exists
var ErrUserNotFound = errors.New("user not found")

// ResolverStore is the read side the resolver needs
type ResolverStore interface {
	GetUser(ctx context.Context, id string) (*storage.User, error)
	ListUserMemberships(ctx context.Context, userID string) ([]*storage.MembershipDetail, error)
}

// Resolver builds principals from users and their active memberships
type Resolver struct {
	store   ResolverStore
	metrics *observability.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(store ResolverStore, metrics *observability.Metrics) *Resolver {
	return &Resolver{store: store, metrics: metrics}
}

// Resolve loads userID and its active memberships and derives the principal
func (r *Resolver) Resolve(ctx context.Context, userID string) (p *auth.Principal, err error) {
	ctx, span := observability.StartSpan(ctx, "membership.Resolve", attribute.String("user.id", userID))
	start := time.Now()
	defer func() {
		result := "ok"
		switch {
		case errors.Is(err, ErrUserNotFound):
			result = "user_not_found"
		case err != nil:
			result = "error"
		}
		r.metrics.ObserveResolve(ctx, result, time.Since(start))
		if errors.Is(err, ErrUserNotFound) {
			observability.EndSpan(span, nil)
			return
		}
		observability.EndSpan(span, err)
	}()

	user, err := r.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	memberships, err := r.store.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}

	p = &auth.Principal{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		IsAdmin:    user.IsAdmin,
		GlobalRole: auth.GlobalRoleUser,
		Teams:      TeamAccessList(memberships),
	}
	if user.IsAdmin {
		p.GlobalRole = auth.GlobalRoleAdmin
	}
	p.Role, p.TeamID = PrimaryRole(user.IsAdmin, p.Teams)

	span.SetAttributes(
		attribute.String("principal.role", string(p.Role)),
		attribute.Int("principal.team_count", len(p.Teams)),
	)
	return p, nil
}

// TeamRoleOf maps a stored membership role to the team role it grants. An
// admin-mirrored membership grants plain membership.
func TeamRoleOf(role storage.MembershipRole) auth.TeamRole {
	if role == storage.MembershipRoleLead {
		return auth.TeamRoleLead
	}
	return auth.TeamRoleMember
}

// TeamAccessList converts membership details, preserving their order
func TeamAccessList(memberships []*storage.MembershipDetail) []auth.TeamAccess {
	teams := make([]auth.TeamAccess, 0, len(memberships))
	for _, m := range memberships {
		teams = append(teams, auth.TeamAccess{
			TeamID:   m.TeamID,
			TeamName: m.TeamName,
			Role:     TeamRoleOf(m.Role),
		})
	}
	return teams
}

// PrimaryRole picks the single role and team for callers that need one
// answer. Precedence is admin > team_lead > team_member and does not depend
// on the order of teams; among equal roles the first entry wins, so callers
// should pass teams oldest first.
func PrimaryRole(isAdmin bool, teams []auth.TeamAccess) (auth.Role, string) {
	var leadTeam, memberTeam string
	for _, t := range teams {
		switch t.Role {
		case auth.TeamRoleLead:
			if leadTeam == "" {
				leadTeam = t.TeamID
			}
		default:
			if memberTeam == "" {
				memberTeam = t.TeamID
			}
		}
	}

	primaryTeam := leadTeam
	if primaryTeam == "" {
		primaryTeam = memberTeam
	}

	switch {
	case isAdmin:
		return auth.RoleAdmin, primaryTeam
	case leadTeam != "":
		return auth.RoleTeamLead, leadTeam
	case memberTeam != "":
		return auth.RoleTeamMember, memberTeam
	default:
		return auth.RoleNone, ""
	}
}

// OrderByPrimary returns teams with the primary team first and the rest in
// their original order. Login responses use it so that clients reading
// teams[0] agree with the resolver.
func OrderByPrimary(teams []auth.TeamAccess, primaryTeamID string) []auth.TeamAccess {
	if primaryTeamID == "" || len(teams) < 2 {
		return teams
	}
	out := make([]auth.TeamAccess, 0, len(teams))
	for _, t := range teams {
		if t.TeamID == primaryTeamID {
			out = append(out, t)
		}
	}
	for _, t := range teams {
		if t.TeamID != primaryTeamID {
			out = append(out, t)
		}
	}
	return out
}
