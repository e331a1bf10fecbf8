package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// StoreOpener connects to the configured store. The caller closes it.
type StoreOpener func(ctx context.Context) (storage.Store, error)

// Env is what commands need from the outside world
type Env struct {
	Out       io.Writer
	In        io.Reader
	Logger    *observability.Logger
	OpenStore StoreOpener
}

// NewRootCommand creates the taskforge-admin command tree
func NewRootCommand(env *Env) *cobra.Command {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.In == nil {
		env.In = os.Stdin
	}
	if env.Logger == nil {
		env.Logger = observability.NewLogger(observability.InfoLevel, os.Stderr)
	}

	root := &cobra.Command{
		Use:   "taskforge-admin",
		Short: "TaskForge administration CLI",
		Long: `Operator commands for a TaskForge deployment.
Store settings are read from the same TASKFORGE_ environment as the API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Out)
	root.SetErr(env.Out)
	root.SetIn(env.In)

	root.AddCommand(
		newCheckLeadsCommand(env),
		newSeedCommand(env),
		newHashPasswordCommand(env),
	)
	return root
}

// withStore opens the store for the duration of fn
func withStore(ctx context.Context, env *Env, fn func(storage.Store) error) error {
	if env.OpenStore == nil {
		return fmt.Errorf("no store configured")
	}
	store, err := env.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	return fn(store)
}
