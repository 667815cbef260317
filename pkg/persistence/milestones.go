package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// MilestoneUpdate carries a partial milestone update.
type MilestoneUpdate struct {
	Title       *string
	Description *string
	DueDate     *string
	Status      *string
	Progress    *int
}

const milestoneColumns = `id, title, description, due_date, status, progress, project_id, created_at, updated_at`

// ListMilestones returns milestones ordered by due date ascending with
// undated milestones last, optionally filtered by project.
func (s *Store) ListMilestones(projectID string) ([]*Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	milestones := make([]*Milestone, 0)
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return milestones, nil
}

// GetMilestoneByID returns a milestone by its ID.
func (s *Store) GetMilestoneByID(id string) (*Milestone, error) {
	row := s.db.QueryRow(`SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id)
	m, err := scanMilestone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("milestone %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone %s: %w", id, err)
	}
	return m, nil
}

// CreateMilestone inserts a new milestone, applying defaults for missing
// fields, and returns the stored ID.
func (s *Store) CreateMilestone(m *Milestone) (string, error) {
	if m.ID == "" {
		m.ID = GenerateMilestoneID()
	}
	if m.Title == "" {
		m.Title = "Untitled"
	}
	if m.Status == "" {
		m.Status = MilestoneStatusUpcoming
	}
	if m.ProjectID == "" {
		m.ProjectID = DefaultProjectID
	}

	now := nowISO()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO milestones (id, title, description, due_date, status, progress, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Title, m.Description, m.DueDate, m.Status, m.Progress,
		m.ProjectID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create milestone %s: %w", m.ID, err)
	}

	return m.ID, nil
}

// UpdateMilestone updates a milestone. The default discipline is
// read-merge-write; with Store.ReplaceUpdates set, the supplied columns
// overwrite unconditionally (legacy PUT-replaces semantics).
func (s *Store) UpdateMilestone(id string, upd *MilestoneUpdate) error {
	if s.ReplaceUpdates {
		return s.replaceMilestone(id, upd)
	}

	existing, err := s.GetMilestoneByID(id)
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
	if upd.DueDate != nil {
		merged.DueDate = upd.DueDate
	}
	if upd.Status != nil {
		merged.Status = *upd.Status
	}
	if upd.Progress != nil {
		merged.Progress = *upd.Progress
	}

	_, err = s.db.Exec(`
		UPDATE milestones
		SET title = ?, description = ?, due_date = ?, status = ?, progress = ?, updated_at = ?
		WHERE id = ?
	`, merged.Title, merged.Description, merged.DueDate, merged.Status,
		merged.Progress, nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to update milestone %s: %w", id, err)
	}
	return nil
}

// replaceMilestone overwrites supplied columns without reading first.
func (s *Store) replaceMilestone(id string, upd *MilestoneUpdate) error {
	derefStr := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	progress := 0
	if upd.Progress != nil {
		progress = *upd.Progress
	}

	result, err := s.db.Exec(`
		UPDATE milestones
		SET title = ?, description = ?, due_date = ?, status = ?, progress = ?, updated_at = ?
		WHERE id = ?
	`, derefStr(upd.Title), derefStr(upd.Description), upd.DueDate,
		derefStr(upd.Status), progress, nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to update milestone %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("milestone %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteMilestone hard-deletes a milestone. Deleting a missing ID is not an error.
func (s *Store) DeleteMilestone(id string) error {
	if _, err := s.db.Exec(`DELETE FROM milestones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete milestone %s: %w", id, err)
	}
	return nil
}

func scanMilestone(row scanner) (*Milestone, error) {
	m := &Milestone{}
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.DueDate, &m.Status, &m.Progress,
		&m.ProjectID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
