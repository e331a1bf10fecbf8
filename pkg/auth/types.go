package auth

// GlobalRole is the organization-wide role of a user
type GlobalRole string

const (
	GlobalRoleUser  GlobalRole = "user"
	GlobalRoleAdmin GlobalRole = "admin"
)

// TeamRole is a user's role inside one specific team
type TeamRole string

const (
	TeamRoleMember TeamRole = "team_member"
	TeamRoleLead   TeamRole = "team_lead"
)

// Role is the single derived role used by coarse role gates
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamLead   Role = "team_lead"
	RoleTeamMember Role = "team_member"
	RoleNone       Role = ""
)

// TeamAccess is one active team membership as seen by the principal
type TeamAccess struct {
	TeamID   string   `json:"teamId"`
	TeamName string   `json:"teamName"`
	Role     TeamRole `json:"role"`
}

// Principal is the resolved identity of the caller for one request.
// It is rebuilt from the store on every request and never cached.
type Principal struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	IsAdmin    bool         `json:"isAdmin"`
	GlobalRole GlobalRole   `json:"globalRole"`
	Teams      []TeamAccess `json:"teams"`

	// Role and TeamID are derived by precedence (admin > team_lead > team_member)
	// for callers that need a single answer. Resource-scoped decisions use
	// Membership instead.
	Role   Role   `json:"role"`
	TeamID string `json:"teamId,omitempty"`

	// TokenID is the jti of the token that authenticated this request
	TokenID string `json:"-"`
}

// Membership returns the principal's access entry for teamID
func (p *Principal) Membership(teamID string) (TeamAccess, bool) {
	if p == nil || teamID == "" {
		return TeamAccess{}, false
	}
	for _, t := range p.Teams {
		if t.TeamID == teamID {
			return t, true
		}
	}
	return TeamAccess{}, false
}

// IsMemberOf reports whether the principal holds any active membership in teamID
func (p *Principal) IsMemberOf(teamID string) bool {
	_, ok := p.Membership(teamID)
	return ok
}

// LeadsTeam reports whether the principal holds the team_lead membership of teamID
func (p *Principal) LeadsTeam(teamID string) bool {
	m, ok := p.Membership(teamID)
	return ok && m.Role == TeamRoleLead
}

// TeamIDs returns the ids of all teams the principal belongs to
func (p *Principal) TeamIDs() []string {
	ids := make([]string, 0, len(p.Teams))
	for _, t := range p.Teams {
		ids = append(ids, t.TeamID)
	}
	return ids
}

// HasAnyRole reports whether the principal passes a role allow-list.
// The admin flag only admits when RoleAdmin is listed.
func (p *Principal) HasAnyRole(allowed ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range allowed {
		if r == RoleAdmin && p.IsAdmin {
			return true
		}
		if p.Role != RoleNone && r == p.Role {
			return true
		}
	}
	return false
}
