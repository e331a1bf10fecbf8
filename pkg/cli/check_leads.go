package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// ErrInconsistent is returned by check-leads when problems remain after the run
var ErrInconsistent = errors.New("team lead inconsistencies found")

func newCheckLeadsCommand(env *Env) *cobra.Command {
	var repair, asJSON bool

	cmd := &cobra.Command{
		Use:   "check-leads",
		Short: "Find (and optionally repair) teams with more than one lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStore(ctx, env, func(store storage.Store) error {
				checker := membership.NewConsistencyChecker(store, nil, env.Logger)
				report, err := checker.Run(ctx, repair)
				if err != nil {
					return err
				}
				if err := printReport(cmd.OutOrStdout(), report, asJSON); err != nil {
					return err
				}
				if len(report.Problems) > report.Repaired {
					return ErrInconsistent
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "demote extra leads, keeping the team's recorded lead")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(out io.Writer, report *membership.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "Checked %d teams, %d with problems, %d repaired\n",
		report.TeamsChecked, len(report.Problems), report.Repaired)
	for _, p := range report.Problems {
		fmt.Fprintf(out, "  %s (%s): %s, recorded lead %q, lead memberships %v\n",
			p.TeamName, p.TeamID, p.Problem, p.TeamLeadID, p.LeadIDs)
	}
	return nil
}
