package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/seed"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

func newSeedCommand(env *Env) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users, organizations and teams from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			doc, err := seed.Load(file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withStore(ctx, env, func(store storage.Store) error {
				seeder := seed.NewSeeder(store, membership.NewService(store, nil), env.Logger)
				res, err := seeder.Apply(ctx, doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "users: %d created, %d skipped\n", res.UsersCreated, res.UsersSkipped)
				fmt.Fprintf(out, "organizations: %d created, %d skipped\n", res.OrganizationsCreated, res.OrganizationsSkipped)
				fmt.Fprintf(out, "teams: %d created, %d skipped\n", res.TeamsCreated, res.TeamsSkipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the seed YAML file")
	return cmd
}
