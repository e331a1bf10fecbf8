// Package api provides the HTTP REST API server for TaskForge.
//
// # Overview
//
// The API is built on gorilla/mux and organized into handler groups, each
// registering its own routes:
//
//   - AuthHandlers: register, login, logout, current principal, user list
//   - TeamHandlers: teams and team memberships
//   - ProjectHandlers: projects and tasks
//   - OrgHandlers: organizations
//
// Google sign-in routes come from pkg/sso and finish through
// AuthHandlers.CompleteLogin.
//
// # Request pipeline
//
// Every protected route is wrapped, in this order, by:
//
//	Identity -> RoleGate.Require(...) -> [DemoGuard] -> ScopeGate.Require*(...) -> handler
//
// The role gate runs before any resource is loaded. The scope gate loads the
// target project, task or team, answers 404 before 403, and attaches the
// record to the request context for the handler.
//
// # Responses
//
// Bodies use the httputil envelope:
//
//	{"success": true, "data": {...}}
//	{"success": false, "message": "Project not found"}
//
// # Usage
//
//	srv, err := api.NewServer(api.Options{Store: store, Tokens: tokens})
//	http.ListenAndServe(":8080", srv.Handler())
package api
