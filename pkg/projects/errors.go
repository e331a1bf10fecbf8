package projects

const (
	msgTeamNotFound    = "Team not found"
	msgProjectNotFound = "Project not found"
	msgTaskNotFound    = "Task not found"

	msgLeadCreateProject = "Only team leads can create projects for their team"
	msgLeadUpdateProject = "Only team leads can update projects of their team"
	msgLeadDeleteProject = "Only team leads can delete projects of their team"

	msgLeadCreateTask = "Only team leads or admins can create tasks"
	msgLeadUpdateTask = "Only team leads or admins can update tasks"
	msgLeadDeleteTask = "Only team leads or admins can delete tasks"

	msgAssigneeNotMember = "Assigned user is not a member of this team"
	msgNothingToUpdate   = "No changes supplied"

	// reasonNotLead is the log-only reason for a lead-only rejection
	reasonNotLead = "not_team_lead"
)
