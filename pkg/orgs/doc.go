// Package orgs manages organizations, the top-level grouping of teams.
//
// Organization names are unique among active organizations, compared
// case-insensitively. Deletion is a soft delete; a deleted organization's
// name becomes available again. The creator is recorded as the first
// organization admin.
//
// Listing is paginated:
//
//	page, err := svc.List(ctx, orgs.PageRequest{Page: 2, Limit: 20})
//	// page.Items, page.Total, page.Page, page.Pages
package orgs
