package membership

import (
	"context"
	"fmt"

	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// Problem names a lead invariant violation
type Problem string

const (
	// ProblemMultipleLeads means more than one active team_lead membership
	ProblemMultipleLeads Problem = "multiple_leads"
	// ProblemPointerMismatch means Team.TeamLeadID disagrees with the
	// team_lead memberships
	ProblemPointerMismatch Problem = "pointer_mismatch"
)

// Inconsistency describes one team that breaks the lead invariant
type Inconsistency struct {
	TeamID     string   `json:"teamId"`
	TeamName   string   `json:"teamName"`
	Problem    Problem  `json:"problem"`
	TeamLeadID string   `json:"teamLead,omitempty"`
	LeadIDs    []string `json:"leadIds"`
}

// Report is the outcome of one consistency run
type Report struct {
	TeamsChecked int             `json:"teamsChecked"`
	Problems     []Inconsistency `json:"problems"`
	Repaired     int             `json:"repaired"`
}

// ConsistencyChecker verifies that every active team has at most one active
// team_lead membership and that Team.TeamLeadID points at it
type ConsistencyChecker struct {
	store   storage.Store
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewConsistencyChecker creates a checker. metrics may be nil.
func NewConsistencyChecker(store storage.Store, metrics *observability.Metrics, logger *observability.Logger) *ConsistencyChecker {
	return &ConsistencyChecker{store: store, metrics: metrics, logger: logger.WithField("component", "lead_consistency")}
}

// Check lists every active team that violates the lead invariant
func (c *ConsistencyChecker) Check(ctx context.Context) ([]Inconsistency, int, error) {
	teams, err := c.store.ListTeams(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}

	var problems []Inconsistency
	for _, team := range teams {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		leads, err := c.store.ListLeadMemberships(ctx, team.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list leads of team %s: %w", team.ID, err)
		}
		if p, ok := inspect(team, leads); ok {
			problems = append(problems, p)
		}
	}
	return problems, len(teams), nil
}

func inspect(team *storage.Team, leads []*storage.TeamMembership) (Inconsistency, bool) {
	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.UserID)
	}
	p := Inconsistency{TeamID: team.ID, TeamName: team.Name, TeamLeadID: team.TeamLeadID, LeadIDs: ids}

	switch {
	case len(leads) > 1:
		p.Problem = ProblemMultipleLeads
		return p, true
	case len(leads) == 1 && leads[0].UserID != team.TeamLeadID:
		p.Problem = ProblemPointerMismatch
		return p, true
	case len(leads) == 0 && team.TeamLeadID != "":
		p.Problem = ProblemPointerMismatch
		return p, true
	}
	return p, false
}

// Repair fixes one team. The lead named by Team.TeamLeadID is kept when it
// holds an active membership, otherwise the oldest lead membership; every
// other lead is demoted. A pointer with no lead membership behind it is
// promoted when the user is still an active member and cleared otherwise.
func (c *ConsistencyChecker) Repair(ctx context.Context, teamID string) error {
	var demoted []string
	err := c.store.RunInTx(ctx, func(tx storage.Store) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			return fmt.Errorf("failed to lock team %s: %w", teamID, err)
		}
		leads, err := tx.ListLeadMemberships(ctx, teamID)
		if err != nil {
			return fmt.Errorf("failed to list leads of team %s: %w", teamID, err)
		}
		if _, broken := inspect(team, leads); !broken {
			return nil
		}

		var keeper *storage.TeamMembership
		for _, l := range leads {
			if l.UserID == team.TeamLeadID {
				keeper = l
				break
			}
		}
		if keeper == nil && len(leads) > 0 {
			keeper = leads[0]
		}

		if keeper == nil {
			m, err := tx.GetMembership(ctx, teamID, team.TeamLeadID)
			if err == nil && m.IsActive {
				m.Role = storage.MembershipRoleLead
				if err := tx.UpdateMembership(ctx, m); err != nil {
					return fmt.Errorf("failed to promote pointed lead: %w", err)
				}
				return nil
			}
			team.TeamLeadID = ""
			return tx.UpdateTeam(ctx, team)
		}

		for _, l := range leads {
			if l.ID == keeper.ID {
				continue
			}
			l.Role = storage.MembershipRoleMember
			if err := tx.UpdateMembership(ctx, l); err != nil {
				return fmt.Errorf("failed to demote %s: %w", l.UserID, err)
			}
			demoted = append(demoted, l.UserID)
		}
		if team.TeamLeadID != keeper.UserID {
			team.TeamLeadID = keeper.UserID
			if err := tx.UpdateTeam(ctx, team); err != nil {
				return fmt.Errorf("failed to repoint lead: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeLeadRepair, audit.EventStatusSuccess).
		On(audit.ResourceTypeTeam, teamID).
		With("demoted", demoted))
	return nil
}

// Run checks every team and, when repair is set, repairs what it finds.
// A failed repair is logged and the run moves on to the next team.
func (c *ConsistencyChecker) Run(ctx context.Context, repair bool) (*Report, error) {
	problems, checked, err := c.Check(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{TeamsChecked: checked, Problems: problems}

	for _, p := range problems {
		c.logger.WithFields(map[string]interface{}{
			"team_id":   p.TeamID,
			"problem":   string(p.Problem),
			"team_lead": p.TeamLeadID,
			"lead_ids":  p.LeadIDs,
		}).Warn("Team lead invariant violated")

		if !repair {
			continue
		}
		if err := c.Repair(ctx, p.TeamID); err != nil {
			c.logger.WithError(err).WithField("team_id", p.TeamID).Error("Failed to repair team lead")
			continue
		}
		report.Repaired++
	}

	c.metrics.RecordLeadCheck(len(problems)-report.Repaired, report.Repaired)
	c.logger.WithFields(map[string]interface{}{
		"teams_checked": checked,
		"problems":      len(problems),
		"repaired":      report.Repaired,
	}).Info("Team lead consistency check finished")
	return report, nil
}
