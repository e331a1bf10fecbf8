package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskforge/pkg/httputil"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/projects"
)

// ProjectHandlers handles project and task HTTP requests
type ProjectHandlers struct {
	service *projects.Service
}

// NewProjectHandlers creates a new ProjectHandlers
func NewProjectHandlers(service *projects.Service) *ProjectHandlers {
	return &ProjectHandlers{service: service}
}

// RegisterRoutes registers /api/projects and /api/tasks routes
func (h *ProjectHandlers) RegisterRoutes(router *mux.Router, s *Server) {
	projectPath := s.scopes.RequireProjectAccess(middleware.PathVar("projectId"))
	projectBody := s.scopes.RequireProjectAccess(middleware.JSONField("projectId"))
	taskPath := s.scopes.RequireTaskAccess(middleware.PathVar("taskId"))

	p := router.PathPrefix("/projects").Subrouter()
	p.Handle("", s.gated(h.createProject, leadOrAdmin, s.demo)).Methods(http.MethodPost)
	p.Handle("", s.gated(h.listProjects, anyRole)).Methods(http.MethodGet)
	p.Handle("/{projectId}", s.gated(h.getProject, anyRole, projectPath)).Methods(http.MethodGet)
	p.Handle("/{projectId}", s.gated(h.updateProject, leadOrAdmin, s.demo, projectPath)).Methods(http.MethodPut, http.MethodPatch)
	p.Handle("/{projectId}", s.gated(h.deleteProject, leadOrAdmin, s.demo, projectPath)).Methods(http.MethodDelete)

	t := router.PathPrefix("/tasks").Subrouter()
	t.Handle("", s.gated(h.createTask, anyRole, s.demo, projectBody)).Methods(http.MethodPost)
	t.Handle("", s.authenticated(h.listTasks)).Methods(http.MethodGet)
	t.Handle("/{taskId}", s.authenticated(h.getTask, taskPath)).Methods(http.MethodGet)
	t.Handle("/{taskId}", s.gated(h.updateTask, anyRole, s.demo, taskPath)).Methods(http.MethodPut, http.MethodPatch)
	t.Handle("/{taskId}", s.gated(h.deleteTask, leadOrAdmin, s.demo, taskPath)).Methods(http.MethodDelete)
}

// createProject handles POST /api/projects
func (h *ProjectHandlers) createProject(w http.ResponseWriter, r *http.Request) {
	var req projects.CreateProjectInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())

	project, err := h.service.CreateProject(r.Context(), p, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, project)
}

// listProjects handles GET /api/projects
func (h *ProjectHandlers) listProjects(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	list, err := h.service.ListProjects(r.Context(), p)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteList(w, list, len(list))
}

// getProject handles GET /api/projects/{projectId}
func (h *ProjectHandlers) getProject(w http.ResponseWriter, r *http.Request) {
	project, _ := middleware.ProjectFromContext(r.Context())
	detail, err := h.service.ProjectDetail(r.Context(), project)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, detail)
}

// updateProject handles PUT /api/projects/{projectId}
func (h *ProjectHandlers) updateProject(w http.ResponseWriter, r *http.Request) {
	var req projects.UpdateProjectInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	project, _ := middleware.ProjectFromContext(r.Context())

	updated, err := h.service.UpdateProject(r.Context(), p, project, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Success: true, Message: "Project updated successfully", Data: updated})
}

// deleteProject handles DELETE /api/projects/{projectId}
func (h *ProjectHandlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	project, _ := middleware.ProjectFromContext(r.Context())
	if err := h.service.DeleteProject(r.Context(), p, project); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, http.StatusOK, "Project deleted successfully")
}

// createTask handles POST /api/tasks; the scope gate resolved the project
// from the body
func (h *ProjectHandlers) createTask(w http.ResponseWriter, r *http.Request) {
	var req projects.CreateTaskInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	project, _ := middleware.ProjectFromContext(r.Context())

	task, err := h.service.CreateTask(r.Context(), p, project, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Message: "Task created successfully", Data: task})
}

// listTasks handles GET /api/tasks
func (h *ProjectHandlers) listTasks(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	tasks, err := h.service.ListTasks(r.Context(), p)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteList(w, tasks, len(tasks))
}

// getTask handles GET /api/tasks/{taskId}
func (h *ProjectHandlers) getTask(w http.ResponseWriter, r *http.Request) {
	task, _ := middleware.TaskFromContext(r.Context())
	_ = httputil.WriteSuccess(w, task)
}

// updateTask handles PUT /api/tasks/{taskId}
func (h *ProjectHandlers) updateTask(w http.ResponseWriter, r *http.Request) {
	var req projects.UpdateTaskInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	task, _ := middleware.TaskFromContext(r.Context())

	updated, err := h.service.UpdateTask(r.Context(), p, task, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Success: true, Message: "Task updated successfully", Data: updated})
}

// deleteTask handles DELETE /api/tasks/{taskId}
func (h *ProjectHandlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	task, _ := middleware.TaskFromContext(r.Context())
	if err := h.service.DeleteTask(r.Context(), p, task); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, http.StatusOK, "Task deleted successfully")
}
