package webui

import (
	"encoding/json"
	"net/http"

	"projecthub/pkg/persistence"
)

type milestoneRequest struct {
	ID          *string `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
	Progress    *int    `json:"progress"`
}

func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleMilestonesList(w, r)
	case http.MethodPost:
		s.handleMilestoneCreate(w, r)
	case http.MethodPut:
		s.handleMilestoneUpdate(w, r)
	case http.MethodDelete:
		s.handleMilestoneDelete(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleMilestonesList(w http.ResponseWriter, r *http.Request) {
	milestones, err := s.store.ListMilestones(r.URL.Query().Get("project_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, milestones)
}

func (s *Server) handleMilestoneCreate(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Progress != nil && (*req.Progress < 0 || *req.Progress > 100) {
		s.writeError(w, http.StatusBadRequest, "Progress must be between 0 and 100")
		return
	}
	if req.Status != nil && !persistence.IsValidMilestoneStatus(*req.Status) {
		s.writeError(w, http.StatusBadRequest, "Invalid milestone status")
		return
	}

	m := &persistence.Milestone{}
	if req.ID != nil {
		m.ID = *req.ID
	}
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	m.DueDate = req.DueDate
	if req.Status != nil {
		m.Status = *req.Status
	}
	if req.Progress != nil {
		m.Progress = *req.Progress
	}

	id, err := s.store.CreateMilestone(m)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("milestone_created", "Created milestone "+m.Title, map[string]string{"milestone_id": id})

	created, err := s.store.GetMilestoneByID(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, created)
}

func (s *Server) handleMilestoneUpdate(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ID == nil || *req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "Milestone id is required")
		return
	}
	if req.Progress != nil && (*req.Progress < 0 || *req.Progress > 100) {
		s.writeError(w, http.StatusBadRequest, "Progress must be between 0 and 100")
		return
	}
	if req.Status != nil && !persistence.IsValidMilestoneStatus(*req.Status) {
		s.writeError(w, http.StatusBadRequest, "Invalid milestone status")
		return
	}

	upd := &persistence.MilestoneUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Progress:    req.Progress,
	}
	if err := s.store.UpdateMilestone(*req.ID, upd); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("milestone_updated", "Updated milestone "+*req.ID, map[string]string{"milestone_id": *req.ID})

	m, err := s.store.GetMilestoneByID(*req.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, m)
}

func (s *Server) handleMilestoneDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Milestone id is required")
		return
	}

	if err := s.store.DeleteMilestone(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("milestone_deleted", "Deleted milestone "+id, map[string]string{"milestone_id": id})
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
