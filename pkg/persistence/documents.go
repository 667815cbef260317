package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// DocumentUpdate carries a partial document update.
type DocumentUpdate struct {
	Title    *string
	Content  *string
	Category *string
	Metadata *string
}

const documentColumns = `id, title, content, category, project_id, version, created_by, metadata, created_at, updated_at`

// ListDocuments returns documents by most recent update, optionally
// filtered by project.
func (s *Store) ListDocuments(projectID string) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// GetDocumentByID returns a document by its ID.
func (s *Store) GetDocumentByID(id string) (*Document, error) {
	row := s.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// CreateDocument inserts a new document, applying defaults for missing
// fields, and returns the stored ID.
func (s *Store) CreateDocument(d *Document) (string, error) {
	if d.ID == "" {
		d.ID = GenerateDocumentID()
	}
	if d.Title == "" {
		d.Title = "Untitled"
	}
	if d.Category == "" {
		d.Category = DocCategoryOther
	}
	if d.ProjectID == "" {
		d.ProjectID = DefaultProjectID
	}
	if d.CreatedBy == "" {
		d.CreatedBy = DefaultUserID
	}
	if d.Metadata == "" {
		d.Metadata = "{}"
	}
	if d.Version == 0 {
		d.Version = 1
	}

	now := nowISO()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO documents (id, title, content, category, project_id, version, created_by, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Title, d.Content, d.Category, d.ProjectID, d.Version, d.CreatedBy,
		d.Metadata, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create document %s: %w", d.ID, err)
	}

	return d.ID, nil
}

// UpdateDocument updates a document. The default discipline is
// read-merge-write; with Store.ReplaceUpdates set, the supplied columns
// overwrite unconditionally (legacy PUT-replaces semantics).
func (s *Store) UpdateDocument(id string, upd *DocumentUpdate) error {
	if s.ReplaceUpdates {
		return s.replaceDocument(id, upd)
	}

	existing, err := s.GetDocumentByID(id)
	if err != nil {
		return err
	}

	merged := *existing
	if upd.Title != nil {
		merged.Title = *upd.Title
	}
	if upd.Content != nil {
		merged.Content = *upd.Content
	}
	if upd.Category != nil {
		merged.Category = *upd.Category
	}
	if upd.Metadata != nil {
		merged.Metadata = *upd.Metadata
	}

	_, err = s.db.Exec(`
		UPDATE documents
		SET title = ?, content = ?, category = ?, metadata = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, merged.Title, merged.Content, merged.Category, merged.Metadata, nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

// replaceDocument overwrites supplied columns without reading first, with
// empty values standing in for unsupplied fields.
func (s *Store) replaceDocument(id string, upd *DocumentUpdate) error {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}

	result, err := s.db.Exec(`
		UPDATE documents
		SET title = ?, content = ?, category = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, deref(upd.Title), deref(upd.Content), deref(upd.Category), nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteDocument hard-deletes a document. Deleting a missing ID is not an error.
func (s *Store) DeleteDocument(id string) error {
	if _, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func scanDocument(row scanner) (*Document, error) {
	doc := &Document{}
	err := row.Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.Category, &doc.ProjectID,
		&doc.Version, &doc.CreatedBy, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
