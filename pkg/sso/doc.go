// Package sso provides Google sign-in through OpenID Connect.
//
// # Flow
//
// The login route redirects to the provider with a random state. The state
// is also stored in a short-lived cookie signed with the session secret, so
// the callback can check that the browser returning the code is the one that
// started the login.
//
// On callback the code is exchanged, the ID token verified, and the verified
// email is used to find or create a local user:
//  1. An existing user with the same email is reused (the account is linked).
//  2. Otherwise a user is created with AuthProvider "google" and no password.
//
// A user created this way has no team memberships and is not an admin, the
// same as a freshly registered local user. The callback then hands the user
// to a LoginCompleter, which issues the TaskForge token and writes the
// ordinary login response.
//
//	provider, err := sso.NewGoogleProvider(ctx, sso.Config{
//		ClientID:     cfg.GoogleClientID,
//		ClientSecret: cfg.GoogleClientSecret,
//		RedirectURL:  cfg.GoogleRedirectURL,
//	})
//	h := sso.NewHandlers(provider, sso.NewProvisioner(store), completer, sessionSecret)
//	h.RegisterRoutes(router.PathPrefix("/api/users/auth").Subrouter())
package sso
