// Package cli implements taskforge-admin, the operator command line.
//
// # Commands
//
// check-leads: report teams whose lead memberships disagree with the team
// record, optionally repairing them
//
//	taskforge-admin check-leads --repair
//
// seed: apply a YAML seed file (see package seed)
//
//	taskforge-admin seed --file seed.yaml
//
// hash-password: print a bcrypt hash for a password read from stdin
//
//	echo 'secret-password' | taskforge-admin hash-password
//
// Commands that need the store open it through Env.OpenStore, which the
// binary wires from the same configuration the API server uses.
package cli
