package webui

import (
	"encoding/json"
	"net/http"

	"projecthub/pkg/persistence"
)

// taskRequest is the wire shape for task creates and edits. Pointer fields
// distinguish absent from zero so omitted fields survive a partial update.
type taskRequest struct {
	ID          *string         `json:"id"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Type        *string         `json:"type"`
	Priority    *string         `json:"priority"`
	Assignee    *string         `json:"assignee"`
	Labels      json.RawMessage `json:"labels"`
	ProjectID   *string         `json:"project_id"`
}

// validateTaskEnums rejects unknown enum values before they reach the
// schema CHECK constraints, so the client sees a 400 instead of a 500.
func (s *Server) validateTaskEnums(w http.ResponseWriter, req *taskRequest) bool {
	if req.Status != nil && !persistence.IsValidTaskStatus(*req.Status) {
		s.writeError(w, http.StatusBadRequest, "Invalid task status")
		return false
	}
	if req.Type != nil && !persistence.IsValidTaskType(*req.Type) {
		s.writeError(w, http.StatusBadRequest, "Invalid task type")
		return false
	}
	if req.Priority != nil && !persistence.IsValidPriority(*req.Priority) {
		s.writeError(w, http.StatusBadRequest, "Invalid task priority")
		return false
	}
	return true
}

// isNarrowStatusMove reports whether the request carries only id and status,
// the shape the board's drag-and-drop sends.
func (req *taskRequest) isNarrowStatusMove() bool {
	return req.ID != nil && req.Status != nil &&
		req.Title == nil && req.Description == nil && req.Type == nil &&
		req.Priority == nil && req.Assignee == nil && req.ProjectID == nil &&
		len(req.Labels) == 0
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleTasksList(w, r)
	case http.MethodPost:
		s.handleTaskCreate(w, r)
	case http.MethodPut:
		s.handleTaskUpdate(w, r)
	case http.MethodDelete:
		s.handleTaskDelete(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleTasksList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.URL.Query().Get("project_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !s.validateTaskEnums(w, &req) {
		return
	}

	// A POST naming an existing id is an upsert: it becomes a full edit.
	if req.ID != nil && *req.ID != "" {
		if _, err := s.store.GetTaskByID(*req.ID); err == nil {
			s.applyTaskUpdate(w, *req.ID, &req)
			return
		} else if !persistence.IsNotFound(err) {
			s.writeStoreError(w, err)
			return
		}
	}

	task := &persistence.Task{}
	if req.ID != nil {
		task.ID = *req.ID
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Type != nil {
		task.Type = *req.Type
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	task.Assignee = req.Assignee
	if req.ProjectID != nil {
		task.ProjectID = *req.ProjectID
	}
	if len(req.Labels) > 0 {
		serialized, err := persistence.NormalizeList(req.Labels)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid labels value")
			return
		}
		var labels []string
		_ = json.Unmarshal([]byte(serialized), &labels)
		task.Labels = labels
	}

	id, err := s.store.CreateTask(task)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("task_created", "Created task "+task.Title, map[string]string{"task_id": id})

	created, err := s.store.GetTaskByID(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, created)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ID == nil || *req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "Task id is required")
		return
	}
	if !s.validateTaskEnums(w, &req) {
		return
	}

	// The drag-and-drop path sends {id, status} only and must touch nothing
	// else on the row.
	if req.isNarrowStatusMove() {
		if err := s.store.UpdateTaskStatus(*req.ID, *req.Status); err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.recordActivity("task_moved", "Moved task to "+*req.Status, map[string]string{"task_id": *req.ID})
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	s.applyTaskUpdate(w, *req.ID, &req)
}

// applyTaskUpdate performs a full merge edit and writes the response.
func (s *Server) applyTaskUpdate(w http.ResponseWriter, id string, req *taskRequest) {
	upd := &persistence.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Type:        req.Type,
		Priority:    req.Priority,
		Assignee:    req.Assignee,
		ProjectID:   req.ProjectID,
	}
	if len(req.Labels) > 0 {
		serialized, err := persistence.NormalizeList(req.Labels)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid labels value")
			return
		}
		upd.Labels = &serialized
	}

	if err := s.store.UpdateTask(id, upd); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("task_updated", "Updated task "+id, map[string]string{"task_id": id})

	task, err := s.store.GetTaskByID(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, task)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Task id is required")
		return
	}

	if err := s.store.DeleteTask(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("task_deleted", "Deleted task "+id, map[string]string{"task_id": id})
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
