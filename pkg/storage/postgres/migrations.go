package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					password_hash TEXT NOT NULL DEFAULT '',
					is_admin BOOLEAN NOT NULL DEFAULT FALSE,
					requested_role VARCHAR(50) NOT NULL DEFAULT '',
					auth_provider VARCHAR(50) NOT NULL DEFAULT 'local',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email));
			`,
		},
		{
			Version:     2,
			Description: "Create organizations and teams tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id TEXT PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
					admins TEXT[] NOT NULL DEFAULT '{}',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations (lower(name));

				CREATE TABLE IF NOT EXISTS teams (
					id TEXT PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					organization_id TEXT REFERENCES organizations(id) ON DELETE SET NULL,
					team_lead_id TEXT REFERENCES users(id) ON DELETE SET NULL,
					member_ids TEXT[] NOT NULL DEFAULT '{}',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_teams_name ON teams (lower(name));
			`,
		},
		{
			Version:     3,
			Description: "Create team_memberships table",
			SQL: `
				CREATE TABLE IF NOT EXISTS team_memberships (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					role VARCHAR(20) NOT NULL,
					is_admin BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (user_id, team_id)
				);

				CREATE INDEX IF NOT EXISTS idx_team_memberships_team_id ON team_memberships (team_id);
				CREATE INDEX IF NOT EXISTS idx_team_memberships_role ON team_memberships (team_id, role) WHERE is_active;
			`,
		},
		{
			Version:     4,
			Description: "Create projects and tasks tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS projects (
					id TEXT PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL,
					team_id TEXT NOT NULL REFERENCES teams(id),
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					end_date TIMESTAMPTZ NOT NULL,
					created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_projects_team_id ON projects (team_id);

				CREATE TABLE IF NOT EXISTS tasks (
					id TEXT PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL,
					state VARCHAR(20) NOT NULL DEFAULT 'todo',
					priority VARCHAR(20) NOT NULL DEFAULT 'medium',
					due_date TIMESTAMPTZ,
					assigned_to TEXT REFERENCES users(id) ON DELETE SET NULL,
					assigned_by TEXT REFERENCES users(id) ON DELETE SET NULL,
					created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
					team_id TEXT NOT NULL REFERENCES teams(id),
					project_id TEXT NOT NULL REFERENCES projects(id),
					comments JSONB NOT NULL DEFAULT '[]',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_tasks_team_id ON tasks (team_id);
				CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks (project_id);
			`,
		},
		{
			Version:     5,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id BIGSERIAL PRIMARY KEY,
					timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					event_type VARCHAR(100) NOT NULL,
					status VARCHAR(20) NOT NULL,
					user_id TEXT,
					resource_type VARCHAR(50),
					resource_id TEXT,
					reason VARCHAR(100),
					ip_address VARCHAR(64),
					request_id VARCHAR(64),
					message TEXT,
					metadata JSONB
				);

				CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events (timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_events_user_id ON audit_events (user_id);
			`,
		},
		{
			Version:     6,
			Description: "Enforce unique active team and organization names",
			SQL: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_active_name
					ON teams (lower(name)) WHERE is_active;
				CREATE UNIQUE INDEX IF NOT EXISTS idx_organizations_active_name
					ON organizations (lower(name)) WHERE is_active;

				DROP INDEX IF EXISTS idx_teams_name;
				DROP INDEX IF EXISTS idx_organizations_name;
			`,
		},
	}
}

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range GetMigrations() {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}
