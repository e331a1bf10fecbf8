// Package seed bootstraps a fresh TaskForge store from a YAML file.
//
// A seed file lists users, organizations and teams:
//
//	users:
//	  - name: Admin
//	    email: admin@example.com
//	    password: change-me-please
//	    admin: true
//	organizations:
//	  - name: Acme
//	    admins: [admin@example.com]
//	teams:
//	  - name: Platform
//	    organization: Acme
//	    lead: lead@example.com
//	    members: [dev@example.com]
//
// Applying a file twice is safe: users whose email exists and teams or
// organizations whose name exists are skipped.
package seed
