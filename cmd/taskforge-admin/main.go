package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/taskforge/pkg/cli"
	"github.com/platinummonkey/taskforge/pkg/config"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/backend"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := &cli.Env{
		Out:    os.Stdout,
		In:     os.Stdin,
		Logger: observability.NewLogger(observability.WarnLevel, os.Stderr),
		OpenStore: func(ctx context.Context) (storage.Store, error) {
			cfg, err := config.LoadConfig(".env")
			if err != nil {
				return nil, err
			}
			return backend.Open(ctx, cfg.Storage)
		},
	}

	if err := cli.NewRootCommand(env).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
