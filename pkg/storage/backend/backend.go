// Package backend opens the store named by storage.Config
package backend

import (
	"context"
	"fmt"

	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/memdb"
	"github.com/platinummonkey/taskforge/pkg/storage/postgres"
)

// Open returns a ready store. Postgres stores are migrated before they are
// returned.
func Open(ctx context.Context, config storage.Config) (storage.Store, error) {
	switch config.Type {
	case "", "memory":
		return memdb.New()
	case "postgres":
		db, err := postgres.Open(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return postgres.New(db), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", config.Type)
	}
}
