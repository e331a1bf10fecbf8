package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

// Service manages projects and tasks
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a new Service
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// requireLead admits admins and the lead of teamID
func requireLead(p *auth.Principal, teamID, message string) error {
	if p.IsAdmin || p.LeadsTeam(teamID) {
		return nil
	}
	return apperr.Forbidden(message).WithReason(reasonNotLead)
}

// CreateProject creates a project for an existing active team
func (s *Service) CreateProject(ctx context.Context, p *auth.Principal, in CreateProjectInput) (*storage.Project, error) {
	team, err := s.store.GetTeam(ctx, in.TeamID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !team.IsActive) {
		return nil, apperr.NotFound(msgTeamNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if err := requireLead(p, team.ID, msgLeadCreateProject); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = storage.ProjectStatusPending
	}
	project := &storage.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		TeamID:      team.ID,
		Status:      status,
		EndDate:     in.EndDate,
		CreatedBy:   p.ID,
		IsActive:    true,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// ListProjects returns every active project for admins and the projects of
// the principal's teams for everyone else
func (s *Service) ListProjects(ctx context.Context, p *auth.Principal) ([]*storage.Project, error) {
	projects, err := s.store.ListProjects(ctx, visibleTeams(p))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []*storage.Project{}
	}
	return projects, nil
}

// ProjectDetail loads the active tasks of an admitted project
func (s *Service) ProjectDetail(ctx context.Context, project *storage.Project) (*ProjectDetail, error) {
	tasks, err := s.store.ListProjectTasks(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*storage.Task{}
	}
	return &ProjectDetail{Project: project, Tasks: tasks}, nil
}

// UpdateProject applies field changes; only the team lead or an admin may.
// The project is re-read under lock so a concurrent delete is not undone.
func (s *Service) UpdateProject(ctx context.Context, p *auth.Principal, project *storage.Project, in UpdateProjectInput) (*storage.Project, error) {
	if err := requireLead(p, project.TeamID, msgLeadUpdateProject); err != nil {
		return nil, err
	}

	var updated *storage.Project
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		current, err := lockProject(ctx, tx, project.ID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			current.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			current.Description = *in.Description
		}
		if in.EndDate != nil {
			current.EndDate = *in.EndDate
		}
		if in.Status != nil {
			current.Status = *in.Status
		}
		if err := tx.UpdateProject(ctx, current); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProject soft-deletes a project
func (s *Service) DeleteProject(ctx context.Context, p *auth.Principal, project *storage.Project) error {
	if err := requireLead(p, project.TeamID, msgLeadDeleteProject); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		current, err := lockProject(ctx, tx, project.ID)
		if err != nil {
			return err
		}
		current.IsActive = false
		if err := tx.UpdateProject(ctx, current); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeResourceDelete, audit.EventStatusSuccess).
		On(audit.ResourceTypeProject, project.ID).
		By(p.ID).
		With("team_id", project.TeamID))
	return nil
}

func lockProject(ctx context.Context, tx storage.Store, id string) (*storage.Project, error) {
	project, err := tx.GetProjectForUpdate(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(msgProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}

// CreateTask creates a task in an admitted project. The task carries the
// project's team id so later scope checks need not load the project.
func (s *Service) CreateTask(ctx context.Context, p *auth.Principal, project *storage.Project, in CreateTaskInput) (*storage.Task, error) {
	if err := requireLead(p, project.TeamID, msgLeadCreateTask); err != nil {
		return nil, err
	}
	if in.AssignedTo != "" {
		if err := s.checkAssignee(ctx, project.TeamID, in.AssignedTo); err != nil {
			return nil, err
		}
	}

	state := in.State
	if state == "" {
		state = storage.TaskStateTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = storage.TaskPriorityMedium
	}
	task := &storage.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		State:       state,
		Priority:    priority,
		DueDate:     in.DueDate,
		AssignedTo:  in.AssignedTo,
		AssignedBy:  p.ID,
		CreatedBy:   p.ID,
		TeamID:      project.TeamID,
		ProjectID:   project.ID,
		Comments:    []storage.Comment{},
		IsActive:    true,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// ListTasks returns every active task for admins and the tasks of the
// principal's teams for everyone else
func (s *Service) ListTasks(ctx context.Context, p *auth.Principal) ([]*storage.Task, error) {
	tasks, err := s.store.ListTasks(ctx, visibleTeams(p))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*storage.Task{}
	}
	return tasks, nil
}

// UpdateTask applies an update to an admitted task. Leads and admins may
// change any field and append a comment. Other team members may only
// append a comment. The task is re-read under lock, so concurrent comments
// all land and a deleted task stays deleted.
func (s *Service) UpdateTask(ctx context.Context, p *auth.Principal, task *storage.Task, in UpdateTaskInput) (*storage.Task, error) {
	comment := strings.TrimSpace(in.Comment)
	if !in.changesFields() && comment == "" {
		return nil, apperr.Validation(msgNothingToUpdate)
	}
	if in.changesFields() {
		if err := requireLead(p, task.TeamID, msgLeadUpdateTask); err != nil {
			return nil, err
		}
	}
	if in.AssignedTo != nil && *in.AssignedTo != "" && *in.AssignedTo != task.AssignedTo {
		if err := s.checkAssignee(ctx, task.TeamID, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	var updated *storage.Task
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		current, err := lockTask(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		if in.Title != nil {
			current.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			current.Description = *in.Description
		}
		if in.State != nil {
			current.State = *in.State
		}
		if in.Priority != nil {
			current.Priority = *in.Priority
		}
		if in.DueDate != nil {
			due := *in.DueDate
			current.DueDate = &due
		}
		if in.AssignedTo != nil && *in.AssignedTo != current.AssignedTo {
			current.AssignedTo = *in.AssignedTo
			current.AssignedBy = p.ID
		}
		if comment != "" {
			current.Comments = append(current.Comments, storage.Comment{
				Text:      comment,
				AuthorID:  p.ID,
				CreatedAt: s.now().UTC(),
			})
		}
		if err := tx.UpdateTask(ctx, current); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTask soft-deletes a task
func (s *Service) DeleteTask(ctx context.Context, p *auth.Principal, task *storage.Task) error {
	if err := requireLead(p, task.TeamID, msgLeadDeleteTask); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		current, err := lockTask(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		current.IsActive = false
		if err := tx.UpdateTask(ctx, current); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeResourceDelete, audit.EventStatusSuccess).
		On(audit.ResourceTypeTask, task.ID).
		By(p.ID).
		With("team_id", task.TeamID))
	return nil
}

func lockTask(ctx context.Context, tx storage.Store, id string) (*storage.Task, error) {
	task, err := tx.GetTaskForUpdate(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

// checkAssignee requires userID to hold an active membership in teamID
func (s *Service) checkAssignee(ctx context.Context, teamID, userID string) error {
	m, err := s.store.GetMembership(ctx, teamID, userID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !m.IsActive) {
		return apperr.Validation(msgAssigneeNotMember)
	}
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	return nil
}

// visibleTeams returns nil (no filter) for admins
func visibleTeams(p *auth.Principal) []string {
	if p.IsAdmin {
		return nil
	}
	return p.TeamIDs()
}
