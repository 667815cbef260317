package persistence

import (
	"encoding/json"
	"fmt"
)

// DefaultActivityLimit bounds the activity feed when no limit is given.
const DefaultActivityLimit = 50

// RecordActivity appends an entry to the activity log. Metadata is stored
// as a JSON object.
func (s *Store) RecordActivity(activityType, message, projectID string, metadata map[string]string) error {
	if projectID == "" {
		projectID = DefaultProjectID
	}
	metaJSON := "{}"
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal activity metadata: %w", err)
		}
		metaJSON = string(data)
	}

	_, err := s.db.Exec(`
		INSERT INTO activity (id, type, message, user_id, project_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, GenerateActivityID(), activityType, message, DefaultUserID, projectID, metaJSON, nowISO())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent activity entries, newest first.
func (s *Store) ListActivity(limit int) ([]*Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	rows, err := s.db.Query(`
		SELECT id, type, message, user_id, project_id, metadata, created_at
		FROM activity ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*Activity, 0)
	for rows.Next() {
		a := &Activity{}
		if err := rows.Scan(&a.ID, &a.Type, &a.Message, &a.UserID, &a.ProjectID, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
