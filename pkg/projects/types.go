package projects

import (
	"time"

	"github.com/platinummonkey/taskforge/pkg/storage"
)

// CreateProjectInput is the body of a project create request
type CreateProjectInput struct {
	Name        string                `json:"name" validate:"required,max=200"`
	Description string                `json:"description" validate:"required"`
	EndDate     time.Time             `json:"endDate" validate:"required"`
	TeamID      string                `json:"teamId" validate:"required"`
	Status      storage.ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
}

// UpdateProjectInput carries optional project field changes
type UpdateProjectInput struct {
	Name        *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string                `json:"description,omitempty"`
	EndDate     *time.Time             `json:"endDate,omitempty"`
	Status      *storage.ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
}

// ProjectDetail is a project with its active tasks
type ProjectDetail struct {
	*storage.Project
	Tasks []*storage.Task `json:"tasks"`
}

// CreateTaskInput is the body of a task create request
type CreateTaskInput struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"required"`
	ProjectID   string               `json:"projectId" validate:"required"`
	State       storage.TaskState    `json:"state,omitempty" validate:"omitempty,oneof=pending todo in-progress completed cancelled"`
	Priority    storage.TaskPriority `json:"priority,omitempty" validate:"omitempty,oneof=none low medium high critical"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	AssignedTo  string               `json:"assignedTo,omitempty"`
}

// UpdateTaskInput carries optional task field changes and an optional
// comment to append
type UpdateTaskInput struct {
	Title       *string               `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string               `json:"description,omitempty"`
	State       *storage.TaskState    `json:"state,omitempty" validate:"omitempty,oneof=pending todo in-progress completed cancelled"`
	Priority    *storage.TaskPriority `json:"priority,omitempty" validate:"omitempty,oneof=none low medium high critical"`
	DueDate     *time.Time            `json:"dueDate,omitempty"`
	AssignedTo  *string               `json:"assignedTo,omitempty"`
	Comment     string                `json:"comment,omitempty" validate:"max=2000"`
}

// changesFields reports whether the input touches anything besides the comment
func (in UpdateTaskInput) changesFields() bool {
	return in.Title != nil || in.Description != nil || in.State != nil ||
		in.Priority != nil || in.DueDate != nil || in.AssignedTo != nil
}
