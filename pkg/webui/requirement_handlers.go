package webui

import (
	"encoding/json"
	"net/http"

	"projecthub/pkg/persistence"
)

type requirementRequest struct {
	ID                 *string         `json:"id"`
	Title              *string         `json:"title"`
	Description        *string         `json:"description"`
	Priority           *string         `json:"priority"`
	Status             *string         `json:"status"`
	AcceptanceCriteria json.RawMessage `json:"acceptance_criteria"`
	LinkedTasks        json.RawMessage `json:"linked_tasks"`
	Notes              *string         `json:"notes"`
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleRequirementsList(w, r)
	case http.MethodPost:
		s.handleRequirementCreate(w, r)
	case http.MethodPut:
		s.handleRequirementUpdate(w, r)
	case http.MethodDelete:
		s.handleRequirementDelete(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleRequirementsList(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.store.ListRequirements(r.URL.Query().Get("project_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleRequirementCreate(w http.ResponseWriter, r *http.Request) {
	var req requirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Status != nil && !persistence.IsValidRequirementStatus(*req.Status) {
		s.writeError(w, http.StatusBadRequest, "Invalid requirement status")
		return
	}
	if req.Priority != nil && !persistence.IsValidPriority(*req.Priority) {
		s.writeError(w, http.StatusBadRequest, "Invalid requirement priority")
		return
	}

	rec := &persistence.Requirement{}
	if req.ID != nil {
		rec.ID = *req.ID
	}
	if req.Title != nil {
		rec.Title = *req.Title
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if req.Priority != nil {
		rec.Priority = *req.Priority
	}
	if req.Status != nil {
		rec.Status = *req.Status
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}
	var err error
	if rec.AcceptanceCriteria, err = decodeListField(req.AcceptanceCriteria); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid acceptance_criteria value")
		return
	}
	if rec.LinkedTasks, err = decodeListField(req.LinkedTasks); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid linked_tasks value")
		return
	}

	id, err := s.store.CreateRequirement(rec)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("requirement_created", "Created requirement "+rec.Title, map[string]string{"requirement_id": id})

	created, err := s.store.GetRequirementByID(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, created)
}

func (s *Server) handleRequirementUpdate(w http.ResponseWriter, r *http.Request) {
	var req requirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ID == nil || *req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "Requirement id is required")
		return
	}
	if req.Status != nil && !persistence.IsValidRequirementStatus(*req.Status) {
		s.writeError(w, http.StatusBadRequest, "Invalid requirement status")
		return
	}
	if req.Priority != nil && !persistence.IsValidPriority(*req.Priority) {
		s.writeError(w, http.StatusBadRequest, "Invalid requirement priority")
		return
	}

	upd := &persistence.RequirementUpdate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Notes:       req.Notes,
	}
	if len(req.AcceptanceCriteria) > 0 {
		serialized, err := persistence.NormalizeList(req.AcceptanceCriteria)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid acceptance_criteria value")
			return
		}
		upd.AcceptanceCriteria = &serialized
	}
	if len(req.LinkedTasks) > 0 {
		serialized, err := persistence.NormalizeList(req.LinkedTasks)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid linked_tasks value")
			return
		}
		upd.LinkedTasks = &serialized
	}

	if err := s.store.UpdateRequirement(*req.ID, upd); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("requirement_updated", "Updated requirement "+*req.ID, map[string]string{"requirement_id": *req.ID})

	rec, err := s.store.GetRequirementByID(*req.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, rec)
}

func (s *Server) handleRequirementDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Requirement id is required")
		return
	}

	if err := s.store.DeleteRequirement(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("requirement_deleted", "Deleted requirement "+id, map[string]string{"requirement_id": id})
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleRequirementArchive implements PUT /api/requirements/archive?id=. The
// transition is idempotent; a second call returns the original archived_at.
func (s *Server) handleRequirementArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Requirement id is required")
		return
	}

	archivedAt, err := s.store.ArchiveRequirement(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("requirement_archived", "Archived requirement "+id, map[string]string{"requirement_id": id})

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"id":          id,
		"status":      persistence.RequirementStatusArchived,
		"archived_at": archivedAt,
	})
}

// decodeListField turns an optional JSON list field into a []string,
// accepting both native arrays and pre-serialized strings.
func decodeListField(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	serialized, err := persistence.NormalizeList(raw)
	if err != nil {
		return nil, err
	}
	var items []string
	if err := json.Unmarshal([]byte(serialized), &items); err != nil {
		return nil, err
	}
	return items, nil
}
