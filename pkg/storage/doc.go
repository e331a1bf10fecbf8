// Package storage defines the persistence contract for TaskForge records.
//
// # Architecture
//
// The store is split into focused interfaces that compose into Store:
//
//   - UserStore: users, looked up by id or case-insensitive email
//   - OrganizationStore: organizations with paginated listing
//   - TeamStore: teams, including a locking read used by role transitions
//   - MembershipStore: the (user, team) join records that drive role resolution
//   - ProjectStore and TaskStore: team-owned resources
//
// Two backends implement Store:
//
//   - memdb: embedded, transactional, built on hashicorp/go-memdb
//   - postgres: database/sql with lib/pq
//
// # Invariants
//
// At most one TeamMembership exists per (user, team) pair. Creating a second
// one fails with ErrConflict; callers reactivate the existing record instead.
// Memberships, teams, projects, tasks and organizations are soft-deleted by
// clearing IsActive and are never removed.
//
// # Transactions
//
// RunInTx executes a function against a transaction-scoped Store. Returning
// an error rolls every write back:
//
//	err := store.RunInTx(ctx, func(tx storage.Store) error {
//		team, err := tx.GetTeamForUpdate(ctx, teamID)
//		...
//		return tx.UpdateTeam(ctx, team)
//	})
//
// Calling RunInTx on a transaction-scoped Store joins the current transaction.
package storage
