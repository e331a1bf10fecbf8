package memdb

import "github.com/platinummonkey/taskforge/pkg/storage"

func cloneUser(u *storage.User) *storage.User {
	cp := *u
	return &cp
}

func cloneOrganization(o *storage.Organization) *storage.Organization {
	cp := *o
	cp.Admins = append([]string(nil), o.Admins...)
	return &cp
}

func cloneTeam(t *storage.Team) *storage.Team {
	cp := *t
	cp.MemberIDs = append([]string(nil), t.MemberIDs...)
	return &cp
}

func cloneMembership(m *storage.TeamMembership) *storage.TeamMembership {
	cp := *m
	return &cp
}

func cloneProject(p *storage.Project) *storage.Project {
	cp := *p
	return &cp
}

func cloneTask(t *storage.Task) *storage.Task {
	cp := *t
	cp.Comments = append([]storage.Comment(nil), t.Comments...)
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	return &cp
}
