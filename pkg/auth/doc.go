// Package auth provides credential verification, identity token issuance and
// the request principal used by every authorization gate in TaskForge.
//
// # Credentials
//
// Passwords are hashed with bcrypt at a fixed cost of 10:
//
//	hash, err := auth.HashPassword("correct horse battery staple")
//	ok := auth.VerifyPassword("correct horse battery staple", hash)
//
// VerifyPassword never returns an error. A malformed hash simply fails.
//
// # Tokens
//
// TokenService issues HS256 tokens carrying only the subject id and the
// global admin flag. Team roles are never embedded; they are resolved from
// live membership records on every request.
//
//	svc, err := auth.NewTokenService(secret)
//	token, claims, err := svc.Issue(user.ID, user.IsAdmin)
//	claims, err = svc.Verify(ctx, token)
//	switch {
//	case errors.Is(err, auth.ErrTokenExpired):
//		// prompt re-login
//	case errors.Is(err, auth.ErrTokenMalformed):
//		// reject
//	}
//
// NewTokenService refuses secrets shorter than MinSecretLength, so a process
// with a weak signing key never starts.
//
// # Principal
//
// Principal is the request-scoped identity built by the membership resolver.
// It carries the global role (User or Admin) separately from per-team roles
// (Member or Lead). Role and TeamID are convenience fields derived by
// precedence; resource-scoped checks must use Membership(teamID) instead.
//
// # Related Packages
//
//   - pkg/membership: builds Principal values from store records
//   - pkg/middleware: Identity, RequireRole and resource scope gates
package auth
