package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// RequirementUpdate carries a partial requirement update. Notes are
// appended to the stored value rather than replacing it; this is the
// progress-note channel and deliberately asymmetric from other free-text
// fields.
type RequirementUpdate struct {
	Title              *string
	Description        *string
	Priority           *string
	Status             *string
	AcceptanceCriteria *string // canonical serialized form, see NormalizeList
	LinkedTasks        *string // canonical serialized form, see NormalizeList
	Notes              *string
}

const requirementColumns = `id, title, description, priority, status, acceptance_criteria, linked_tasks, notes, project_id, created_at, updated_at, archived_at`

// ListRequirements returns requirements, newest first, optionally filtered
// by project.
func (s *Store) ListRequirements(projectID string) ([]*Requirement, error) {
	query := `SELECT ` + requirementColumns + ` FROM requirements`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	reqs := make([]*Requirement, 0)
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return reqs, nil
}

// GetRequirementByID returns a requirement by its ID.
func (s *Store) GetRequirementByID(id string) (*Requirement, error) {
	row := s.db.QueryRow(`SELECT `+requirementColumns+` FROM requirements WHERE id = ?`, id)
	req, err := scanRequirement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requirement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement %s: %w", id, err)
	}
	return req, nil
}

// CreateRequirement inserts a new requirement, applying defaults for
// missing fields, and returns the stored ID.
func (s *Store) CreateRequirement(r *Requirement) (string, error) {
	if r.ID == "" {
		r.ID = GenerateRequirementID()
	}
	if r.Title == "" {
		r.Title = "Untitled"
	}
	if r.Priority == "" {
		r.Priority = PriorityShould
	}
	if r.Status == "" {
		r.Status = RequirementStatusDraft
	}
	if r.ProjectID == "" {
		r.ProjectID = DefaultProjectID
	}
	if r.AcceptanceCriteria == nil {
		r.AcceptanceCriteria = []string{}
	}
	if r.LinkedTasks == nil {
		r.LinkedTasks = []string{}
	}

	now := nowISO()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.ArchivedAt = nil
	if r.Status == RequirementStatusArchived {
		r.ArchivedAt = &now
	}

	_, err := s.db.Exec(`
		INSERT INTO requirements (id, title, description, priority, status, acceptance_criteria, linked_tasks, notes, project_id, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Title, r.Description, r.Priority, r.Status,
		encodeList(r.AcceptanceCriteria), encodeList(r.LinkedTasks), r.Notes,
		r.ProjectID, r.CreatedAt, r.UpdatedAt, r.ArchivedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create requirement %s: %w", r.ID, err)
	}

	return r.ID, nil
}

// UpdateRequirement merges the supplied fields into the existing row.
// Omitted fields keep their stored value. archived_at follows the status
// transition: entering archived stamps it once, returning to draft or
// in-progress clears it, any other transition carries it forward.
func (s *Store) UpdateRequirement(id string, upd *RequirementUpdate) error {
	existing, err := s.GetRequirementByID(id)
	if err != nil {
		return err
	}

	merged := *existing
	if upd.Title != nil {
		merged.Title = *upd.Title
	}
	if upd.Description != nil {
		merged.Description = *upd.Description
	}
	if upd.Priority != nil {
		merged.Priority = *upd.Priority
	}
	if upd.Status != nil {
		merged.Status = *upd.Status
	}

	criteria := encodeList(existing.AcceptanceCriteria)
	if upd.AcceptanceCriteria != nil {
		criteria = *upd.AcceptanceCriteria
	}
	linked := encodeList(existing.LinkedTasks)
	if upd.LinkedTasks != nil {
		linked = *upd.LinkedTasks
	}

	// Notes append rather than overwrite.
	notes := existing.Notes
	if upd.Notes != nil {
		if notes != "" {
			notes = notes + NotesSeparator + *upd.Notes
		} else {
			notes = *upd.Notes
		}
	}

	archivedAt := archivedAtFor(merged.Status, existing.ArchivedAt)

	_, err = s.db.Exec(`
		UPDATE requirements
		SET title = ?, description = ?, priority = ?, status = ?, acceptance_criteria = ?, linked_tasks = ?, notes = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, merged.Title, merged.Description, merged.Priority, merged.Status,
		criteria, linked, notes, nowISO(), archivedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update requirement %s: %w", id, err)
	}
	return nil
}

// ArchiveRequirement is the distinguished archive transition. It fails with
// ErrNotFound for an unknown ID and is idempotent: a requirement already
// archived keeps its original archived_at. Returns the effective
// archived_at timestamp.
func (s *Store) ArchiveRequirement(id string) (string, error) {
	existing, err := s.GetRequirementByID(id)
	if err != nil {
		return "", err
	}

	archivedAt := nowISO()
	if existing.Status == RequirementStatusArchived && existing.ArchivedAt != nil {
		archivedAt = *existing.ArchivedAt
	}

	_, err = s.db.Exec(`
		UPDATE requirements
		SET status = ?, archived_at = ?, updated_at = ?
		WHERE id = ?
	`, RequirementStatusArchived, archivedAt, nowISO(), id)
	if err != nil {
		return "", fmt.Errorf("failed to archive requirement %s: %w", id, err)
	}

	return archivedAt, nil
}

// DeleteRequirement hard-deletes a requirement. Deleting a missing ID is
// not an error.
func (s *Store) DeleteRequirement(id string) error {
	if _, err := s.db.Exec(`DELETE FROM requirements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete requirement %s: %w", id, err)
	}
	return nil
}

// archivedAtFor derives archived_at from a target status. Entering
// archived stamps once; draft and in-progress clear it; everything else
// carries the previous value forward.
func archivedAtFor(status string, previous *string) *string {
	switch status {
	case RequirementStatusArchived:
		if previous != nil {
			return previous
		}
		now := nowISO()
		return &now
	case RequirementStatusDraft, RequirementStatusInProgress:
		return nil
	default:
		return previous
	}
}

func scanRequirement(row scanner) (*Requirement, error) {
	req := &Requirement{}
	var criteria, linked string
	err := row.Scan(
		&req.ID, &req.Title, &req.Description, &req.Priority, &req.Status,
		&criteria, &linked, &req.Notes, &req.ProjectID,
		&req.CreatedAt, &req.UpdatedAt, &req.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}
	req.AcceptanceCriteria = decodeList(criteria)
	req.LinkedTasks = decodeList(linked)
	return req, nil
}
