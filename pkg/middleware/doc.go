// Package middleware implements the authorization pipeline and the request
// guards that sit in front of it.
//
// Every protected route runs the same order:
//
//	Identity -> RoleGate.Require -> ScopeGate.Require*Access -> handler
//
// Identity verifies the bearer token and resolves a fresh principal.
// RoleGate is the cheap, context-free check against the primary role.
// ScopeGate loads the target resource and admits only admins and members of
// the owning team; it never looks at the primary role. Each stage writes its
// own response and stops the chain on failure.
//
// The remaining guards are independent of the pipeline: RateLimit (in-memory
// token buckets or a redis fixed window), BruteForceGuard (failed login
// counter keyed by client address) and DemoGuard (read-only demo accounts).
package middleware
