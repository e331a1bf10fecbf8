// Package membership derives request principals from live team membership
// records and owns every write that changes who belongs to a team or who
// leads it.
//
// # Resolution
//
// Resolver.Resolve loads the user and its active memberships in active teams
// on every call. Nothing is cached, so a role change is visible on the next
// request. The primary role follows admin > team_lead > team_member; the
// primary team is the oldest membership carrying that role.
//
// # Team lead state machine
//
// A team has at most one active team_lead membership. Service.PromoteToLead
// locks the team row, demotes the previous lead, promotes the new one and
// repoints Team.TeamLeadID inside one store transaction. Any failure aborts
// the whole transition and is reported as a server error.
//
// ConsistencyChecker finds teams that violate the invariant anyway (for
// example rows written by an older release) and repairs them. It runs at
// startup, on a cron schedule, and from the admin CLI.
package membership
