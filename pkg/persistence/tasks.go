package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// DefaultProjectID is the ID of the project seeded at first run.
const DefaultProjectID = "proj-projecthub"

// DefaultUserID is the ID of the user seeded at first run.
const DefaultUserID = "user-admin"

// TaskUpdate carries a partial task update. Nil fields keep the stored
// value; the repository reads the existing row and merges before writing.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Type        *string
	Priority    *string
	Assignee    *string
	Labels      *string // canonical serialized form, see NormalizeList
	ProjectID   *string
}

const taskColumns = `id, title, description, status, type, priority, assignee, labels, project_id, created_at, updated_at, completed_at`

// ListTasks returns tasks, newest first, optionally filtered by project.
func (s *Store) ListTasks(projectID string) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	tasks := make([]*Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// GetTaskByID returns a task by its ID.
func (s *Store) GetTaskByID(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// CreateTask inserts a new task, applying defaults for missing fields.
// A caller-supplied ID is honored; otherwise one is generated. Returns the
// stored ID.
func (s *Store) CreateTask(t *Task) (string, error) {
	if t.ID == "" {
		t.ID = GenerateTaskID()
	}
	if t.Status == "" {
		t.Status = TaskStatusBacklog
	}
	if t.Type == "" {
		t.Type = TaskTypeStory
	}
	if t.Priority == "" {
		t.Priority = PriorityShould
	}
	if t.ProjectID == "" {
		t.ProjectID = DefaultProjectID
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}

	now := nowISO()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.CompletedAt = nil
	if t.Status == TaskStatusDone {
		t.CompletedAt = &now
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, title, description, status, type, priority, assignee, labels, project_id, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Status, t.Type, t.Priority, t.Assignee,
		encodeList(t.Labels), t.ProjectID, t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create task %s: %w", t.ID, err)
	}

	return t.ID, nil
}

// UpdateTask merges the supplied fields into the existing row. Fields left
// nil keep their stored value. Derived completed_at is recomputed from the
// resulting status and never taken from the caller.
func (s *Store) UpdateTask(id string, upd *TaskUpdate) error {
	existing, err := s.GetTaskByID(id)
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
	if upd.Status != nil {
		merged.Status = *upd.Status
	}
	if upd.Type != nil {
		merged.Type = *upd.Type
	}
	if upd.Priority != nil {
		merged.Priority = *upd.Priority
	}
	if upd.Assignee != nil {
		merged.Assignee = upd.Assignee
	}
	if upd.ProjectID != nil {
		merged.ProjectID = *upd.ProjectID
	}

	labels := encodeList(existing.Labels)
	if upd.Labels != nil {
		labels = *upd.Labels
	}

	completedAt := completedAtFor(merged.Status, existing.CompletedAt)

	_, err = s.db.Exec(`
		UPDATE tasks
		SET title = ?, description = ?, status = ?, type = ?, priority = ?, assignee = ?, labels = ?, project_id = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, merged.Title, merged.Description, merged.Status, merged.Type, merged.Priority,
		merged.Assignee, labels, merged.ProjectID, nowISO(), completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return nil
}

// UpdateTaskStatus is the narrow drag-and-drop path: given only a status it
// moves the task, recomputes completed_at, and touches nothing else.
func (s *Store) UpdateTaskStatus(id, status string) error {
	existing, err := s.GetTaskByID(id)
	if err != nil {
		return err
	}

	completedAt := completedAtFor(status, existing.CompletedAt)

	result, err := s.db.Exec(`
		UPDATE tasks
		SET status = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, status, nowISO(), completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update task status for %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteTask hard-deletes a task. Deleting a missing ID is not an error.
func (s *Store) DeleteTask(id string) error {
	if _, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// completedAtFor derives the completed_at value from a target status.
// Entering done stamps the current time once; a task already done keeps its
// original completion time, and leaving done clears it.
func completedAtFor(status string, previous *string) *string {
	if status != TaskStatusDone {
		return nil
	}
	if previous != nil {
		return previous
	}
	now := nowISO()
	return &now
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	task := &Task{}
	var labels string
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.Type,
		&task.Priority, &task.Assignee, &labels, &task.ProjectID,
		&task.CreatedAt, &task.UpdatedAt, &task.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Labels = decodeList(labels)
	return task, nil
}
