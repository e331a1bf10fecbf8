// Package projects implements project and task management.
//
// Callers are expected to have passed the request through the identity,
// role and scope gates before calling in: the service trusts the principal
// and, for project- and task-scoped operations, the already loaded record.
// What it still decides itself is the per-team rule that only the lead of
// the owning team (or an admin) may create or modify. That decision reads
// the principal's membership for the record's team, never the primary role.
package projects
