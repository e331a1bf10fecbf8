package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// AddOutcome tells a caller whether AddMember created or revived a record
type AddOutcome int

const (
	Created AddOutcome = iota
	Reactivated
)

// CreateTeamInput describes a new team and its initial members
type CreateTeamInput struct {
	Name           string
	Description    string
	OrganizationID string
	TeamLeadID     string
	MemberIDs      []string
}

// UpdateTeamInput carries optional team field changes
type UpdateTeamInput struct {
	Name        *string
	Description *string
}

// Service manages teams and memberships
type Service struct {
	store   storage.Store
	metrics *observability.Metrics
}

// NewService creates a membership service. metrics may be nil.
func NewService(store storage.Store, metrics *observability.Metrics) *Service {
	return &Service{store: store, metrics: metrics}
}

// CreateTeam creates the team and one active membership per listed user in
// a single transaction. The lead gets team_lead, everyone else team_member.
func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput) (*storage.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	team := &storage.Team{
		Name:           name,
		Description:    in.Description,
		OrganizationID: in.OrganizationID,
		TeamLeadID:     in.TeamLeadID,
		IsActive:       true,
	}
	roles := initialRoles(in.TeamLeadID, in.MemberIDs)

	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetTeamByName(ctx, name); err == nil {
			return apperr.Conflict(msgTeamExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to check team name: %w", err)
		}

		if in.OrganizationID != "" {
			if _, err := tx.GetOrganization(ctx, in.OrganizationID); err != nil {
				return lookup(err, "Organization not found", "load organization")
			}
		}

		for _, r := range roles {
			if _, err := tx.GetUser(ctx, r.userID); err != nil {
				return lookup(err, msgUserNotFound, "load user")
			}
			team.AddMember(r.userID)
		}

		if err := tx.CreateTeam(ctx, team); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return apperr.Conflict(msgTeamExists)
			}
			return fmt.Errorf("failed to create team: %w", err)
		}

		for _, r := range roles {
			m := &storage.TeamMembership{
				UserID:   r.userID,
				TeamID:   team.ID,
				Role:     r.role,
				IsActive: true,
			}
			if err := tx.CreateMembership(ctx, m); err != nil {
				return fmt.Errorf("failed to create membership for %s: %w", r.userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeMembershipAdd, audit.EventStatusSuccess).
		On(audit.ResourceTypeTeam, team.ID).
		With("members", len(roles)).
		With("team_lead", team.TeamLeadID))
	return team, nil
}

type initialRole struct {
	userID string
	role   storage.MembershipRole
}

// initialRoles dedupes the lead and member ids, keeping the lead first
func initialRoles(leadID string, memberIDs []string) []initialRole {
	seen := make(map[string]bool)
	var roles []initialRole
	if leadID != "" {
		seen[leadID] = true
		roles = append(roles, initialRole{userID: leadID, role: storage.MembershipRoleLead})
	}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		roles = append(roles, initialRole{userID: id, role: storage.MembershipRoleMember})
	}
	return roles
}

// GetTeam returns an active team
func (s *Service) GetTeam(ctx context.Context, teamID string) (*storage.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, lookup(err, msgTeamNotFound, "load team")
	}
	if !team.IsActive {
		return nil, apperr.NotFound(msgTeamNotFound)
	}
	return team, nil
}

// ListTeams returns every active team for admins and the teams p leads
// otherwise
func (s *Service) ListTeams(ctx context.Context, p *auth.Principal) ([]*storage.Team, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	if p.IsAdmin {
		return teams, nil
	}
	var own []*storage.Team
	for _, t := range teams {
		if p.LeadsTeam(t.ID) {
			own = append(own, t)
		}
	}
	return own, nil
}

// UpdateTeam changes the name and/or description of an active team
func (s *Service) UpdateTeam(ctx context.Context, teamID string, in UpdateTeamInput) (*storage.Team, error) {
	var team *storage.Team
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		var err error
		team, err = tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return lookup(err, msgTeamNotFound, "load team")
		}
		if !team.IsActive {
			return apperr.NotFound(msgTeamNotFound)
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation("name cannot be empty")
			}
			if !strings.EqualFold(name, team.Name) {
				if existing, err := tx.GetTeamByName(ctx, name); err == nil && existing.ID != team.ID {
					return apperr.Conflict(msgTeamExists)
				} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("failed to check team name: %w", err)
				}
			}
			team.Name = name
		}
		if in.Description != nil {
			team.Description = *in.Description
		}
		return tx.UpdateTeam(ctx, team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// DeactivateTeam soft-deletes a team. Its memberships stay untouched but no
// longer resolve because the team is inactive.
func (s *Service) DeactivateTeam(ctx context.Context, teamID string) error {
	return s.store.RunInTx(ctx, func(tx storage.Store) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return lookup(err, msgTeamNotFound, "load team")
		}
		if !team.IsActive {
			return apperr.NotFound(msgTeamNotFound)
		}
		team.IsActive = false
		return tx.UpdateTeam(ctx, team)
	})
}

// ListMembers returns the active members of an active team
func (s *Service) ListMembers(ctx context.Context, teamID string) ([]*storage.MembershipDetail, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	members, err := s.store.ListTeamMemberships(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// GetMember returns one active member of a team
func (s *Service) GetMember(ctx context.Context, teamID, userID string) (*storage.MembershipDetail, error) {
	members, err := s.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, apperr.NotFound(msgMemberNotFound)
}

// MyTeams returns the caller's active memberships, oldest first
func (s *Service) MyTeams(ctx context.Context, userID string) ([]*storage.MembershipDetail, error) {
	teams, err := s.store.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return teams, nil
}

// AddMember adds userID to teamID. A previously removed membership is
// reactivated in place; an active one is a conflict. Adding with team_lead
// runs the promotion in the same transaction.
func (s *Service) AddMember(ctx context.Context, teamID, userID string, role storage.MembershipRole) (*storage.TeamMembership, AddOutcome, error) {
	if role == "" {
		role = storage.MembershipRoleMember
	}
	if !role.Valid() {
		return nil, Created, apperr.Validation("role must be one of: team_lead, team_member, admin")
	}

	var (
		membership *storage.TeamMembership
		outcome    = Created
	)
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return lookup(err, msgTeamNotFound, "load team")
		}
		if !team.IsActive {
			return apperr.NotFound(msgTeamNotFound)
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return lookup(err, msgUserNotFound, "load user")
		}

		// the lead role is applied by promote below
		stored := role
		if role == storage.MembershipRoleLead {
			stored = storage.MembershipRoleMember
		}

		existing, err := tx.GetMembership(ctx, teamID, userID)
		switch {
		case err == nil && existing.IsActive:
			return apperr.Conflict(msgAlreadyMember)
		case err == nil:
			existing.IsActive = true
			existing.Role = stored
			if err := tx.UpdateMembership(ctx, existing); err != nil {
				return fmt.Errorf("failed to reactivate membership: %w", err)
			}
			membership = existing
			outcome = Reactivated
		case errors.Is(err, storage.ErrNotFound):
			membership = &storage.TeamMembership{
				UserID:   userID,
				TeamID:   teamID,
				Role:     stored,
				IsActive: true,
			}
			if err := tx.CreateMembership(ctx, membership); err != nil {
				if errors.Is(err, storage.ErrConflict) {
					return apperr.Conflict(msgAlreadyMember)
				}
				return fmt.Errorf("failed to create membership: %w", err)
			}
		default:
			return fmt.Errorf("failed to load membership: %w", err)
		}

		team.AddMember(userID)
		if err := tx.UpdateTeam(ctx, team); err != nil {
			return fmt.Errorf("failed to update team members: %w", err)
		}

		if role == storage.MembershipRoleLead {
			return promote(ctx, tx, team, membership)
		}
		return nil
	})
	if err != nil {
		return nil, outcome, err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeMembershipAdd, audit.EventStatusSuccess).
		On(audit.ResourceTypeMembership, membership.ID).
		With("team_id", teamID).
		With("member_id", userID).
		With("role", string(membership.Role)).
		With("reactivated", outcome == Reactivated))
	return membership, outcome, nil
}

// RemoveMember soft-deletes the membership. Removing the lead clears the
// team's lead pointer.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID string) error {
	var membershipID string
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return lookup(err, msgTeamNotFound, "load team")
		}
		m, err := tx.GetMembership(ctx, teamID, userID)
		if err != nil {
			return lookup(err, msgMemberNotFound, "load membership")
		}
		if !m.IsActive {
			return apperr.NotFound(msgMemberNotFound)
		}

		m.IsActive = false
		if err := tx.UpdateMembership(ctx, m); err != nil {
			return fmt.Errorf("failed to deactivate membership: %w", err)
		}
		membershipID = m.ID

		team.RemoveMember(userID)
		if team.TeamLeadID == userID {
			team.TeamLeadID = ""
		}
		if err := tx.UpdateTeam(ctx, team); err != nil {
			return fmt.Errorf("failed to update team members: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeMembershipRemove, audit.EventStatusSuccess).
		On(audit.ResourceTypeMembership, membershipID).
		With("team_id", teamID).
		With("member_id", userID))
	return nil
}

// UpdateRole moves a member to role. team_lead runs the promotion state
// machine; anything else demotes.
func (s *Service) UpdateRole(ctx context.Context, teamID, userID string, role storage.MembershipRole) (*storage.TeamMembership, error) {
	switch role {
	case storage.MembershipRoleLead:
		return s.PromoteToLead(ctx, teamID, userID)
	case storage.MembershipRoleMember, storage.MembershipRoleAdmin:
		return s.setNonLeadRole(ctx, teamID, userID, role)
	default:
		return nil, apperr.Validation("role must be one of: team_lead, team_member, admin")
	}
}

// PromoteToLead makes userID the only team_lead of teamID. The team row is
// locked for the whole transition, the previous lead is demoted, the new
// lead promoted and Team.TeamLeadID repointed, all in one transaction.
// Failures after validation abort everything and surface as server errors.
func (s *Service) PromoteToLead(ctx context.Context, teamID, userID string) (m *storage.TeamMembership, err error) {
	ctx, span := observability.StartSpan(ctx, "membership.PromoteToLead",
		attribute.String("team.id", teamID),
		attribute.String("user.id", userID),
	)
	defer func() {
		result := "ok"
		if err != nil {
			result = apperr.KindOf(err).String()
		}
		s.metrics.RecordRoleTransition(string(storage.MembershipRoleLead), result)
		observability.EndSpan(span, err)
	}()

	var previous []string
	err = s.store.RunInTx(ctx, func(tx storage.Store) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return lookup(err, msgTeamNotFound, "lock team")
		}
		if !team.IsActive {
			return apperr.NotFound(msgTeamNotFound)
		}
		target, err := tx.GetMembership(ctx, teamID, userID)
		if err != nil {
			return lookup(err, msgMemberNotFound, "load membership")
		}
		if !target.IsActive {
			return apperr.NotFound(msgMemberNotFound)
		}

		leads, err := tx.ListLeadMemberships(ctx, teamID)
		if err != nil {
			return apperr.Server(fmt.Errorf("failed to list current leads: %w", err))
		}
		for _, l := range leads {
			if l.UserID != userID {
				previous = append(previous, l.UserID)
			}
		}

		m = target
		return promote(ctx, tx, team, target)
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthzRoleChange, audit.EventStatusSuccess).
		On(audit.ResourceTypeMembership, m.ID).
		With("team_id", teamID).
		With("member_id", userID).
		With("role", string(storage.MembershipRoleLead)).
		With("demoted", previous))
	return m, nil
}

// promote runs the three transition steps inside tx. Every step failure is a
// server error so that a caller never mistakes a half-applied promotion for
// a client mistake.
func promote(ctx context.Context, tx storage.Store, team *storage.Team, target *storage.TeamMembership) error {
	leads, err := tx.ListLeadMemberships(ctx, team.ID)
	if err != nil {
		return apperr.Server(fmt.Errorf("failed to list current leads: %w", err))
	}
	for _, lead := range leads {
		if lead.ID == target.ID {
			continue
		}
		lead.Role = storage.MembershipRoleMember
		if err := tx.UpdateMembership(ctx, lead); err != nil {
			return apperr.Server(fmt.Errorf("failed to demote lead %s on team %s: %w", lead.UserID, team.ID, err))
		}
	}

	if target.Role != storage.MembershipRoleLead {
		target.Role = storage.MembershipRoleLead
		if err := tx.UpdateMembership(ctx, target); err != nil {
			return apperr.Server(fmt.Errorf("failed to promote %s on team %s: %w", target.UserID, team.ID, err))
		}
	}

	team.TeamLeadID = target.UserID
	team.AddMember(target.UserID)
	if err := tx.UpdateTeam(ctx, team); err != nil {
		return apperr.Server(fmt.Errorf("failed to set lead of team %s: %w", team.ID, err))
	}
	return nil
}

func (s *Service) setNonLeadRole(ctx context.Context, teamID, userID string, role storage.MembershipRole) (m *storage.TeamMembership, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = apperr.KindOf(err).String()
		}
		s.metrics.RecordRoleTransition(string(role), result)
	}()

	err = s.store.RunInTx(ctx, func(tx storage.Store) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return lookup(err, msgTeamNotFound, "lock team")
		}
		if !team.IsActive {
			return apperr.NotFound(msgTeamNotFound)
		}
		m, err = tx.GetMembership(ctx, teamID, userID)
		if err != nil {
			return lookup(err, msgMemberNotFound, "load membership")
		}
		if !m.IsActive {
			return apperr.NotFound(msgMemberNotFound)
		}

		m.Role = role
		if err := tx.UpdateMembership(ctx, m); err != nil {
			return apperr.Server(fmt.Errorf("failed to update role: %w", err))
		}
		if team.TeamLeadID == userID {
			team.TeamLeadID = ""
			if err := tx.UpdateTeam(ctx, team); err != nil {
				return apperr.Server(fmt.Errorf("failed to clear lead of team %s: %w", team.ID, err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthzRoleChange, audit.EventStatusSuccess).
		On(audit.ResourceTypeMembership, m.ID).
		With("team_id", teamID).
		With("member_id", userID).
		With("role", string(role)))
	return m, nil
}
