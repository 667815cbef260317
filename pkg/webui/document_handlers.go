package webui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"projecthub/pkg/persistence"
)

// maxUploadBytes bounds multipart parsing memory for uploads.
const maxUploadBytes = 32 << 20

// unsafeFilenameChars matches everything that is replaced before a filename
// touches the filesystem.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

type documentRequest struct {
	ID       *string `json:"id"`
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleDocumentsList(w, r)
	case http.MethodPost:
		s.handleDocumentCreate(w, r)
	case http.MethodPut:
		s.handleDocumentUpdate(w, r)
	case http.MethodDelete:
		s.handleDocumentDelete(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleDocumentsList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.URL.Query().Get("project_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDocumentCreate(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Category != nil && !persistence.IsValidDocCategory(*req.Category) {
		s.writeError(w, http.StatusBadRequest, "Invalid document category")
		return
	}

	doc := &persistence.Document{}
	if req.ID != nil {
		doc.ID = *req.ID
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	if req.Category != nil {
		doc.Category = *req.Category
	}

	id, err := s.store.CreateDocument(doc)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("document_created", "Created document "+doc.Title, map[string]string{"document_id": id})

	created, err := s.store.GetDocumentByID(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, created)
}

func (s *Server) handleDocumentUpdate(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ID == nil || *req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "Document id is required")
		return
	}
	if req.Category != nil && !persistence.IsValidDocCategory(*req.Category) {
		s.writeError(w, http.StatusBadRequest, "Invalid document category")
		return
	}

	upd := &persistence.DocumentUpdate{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	}
	if err := s.store.UpdateDocument(*req.ID, upd); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("document_updated", "Updated document "+*req.ID, map[string]string{"document_id": *req.ID})

	doc, err := s.store.GetDocumentByID(*req.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeEntity(w, doc)
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Document id is required")
		return
	}

	if err := s.store.DeleteDocument(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.recordActivity("document_deleted", "Deleted document "+id, map[string]string{"document_id": id})
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleDocumentUpload implements POST /api/documents/upload. The blob is
// stored under a timestamp-prefixed sanitized filename; text uploads become
// the document content, binary uploads get a placeholder body.
func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("Failed to read upload %s: %v", header.Filename, err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	originalName := header.Filename
	sanitized := unsafeFilenameChars.ReplaceAllString(originalName, "_")
	storedName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitized)
	storedPath := filepath.Join(s.uploadsDir, storedName)

	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		s.logger.Error("Failed to store upload %s: %v", storedName, err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	content := placeholderContent(originalName, mimeType, len(data))
	if isTextUpload(mimeType, originalName) {
		content = string(data)
	}

	metadata, err := json.Marshal(map[string]any{
		"filename":     storedName,
		"originalName": originalName,
		"size":         len(data),
		"type":         mimeType,
		"filepath":     "/uploads/" + storedName,
	})
	if err != nil {
		s.logger.Error("Failed to marshal upload metadata: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	doc := &persistence.Document{
		Title:    originalName,
		Content:  content,
		Category: persistence.DocCategoryOther,
		Metadata: string(metadata),
	}
	id, err := s.store.CreateDocument(doc)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("Stored upload %s (%d bytes) as document %s", storedName, len(data), id)
	s.recordActivity("document_uploaded", "Uploaded "+originalName, map[string]string{"document_id": id})

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"id":       id,
		"filename": storedName,
	})
}

// isTextUpload decides whether an upload's bytes become the document body.
func isTextUpload(mimeType, filename string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/javascript":
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".csv", ".json", ".xml", ".yaml", ".yml", ".log":
		return true
	}
	return false
}

// placeholderContent is the document body for binary uploads.
func placeholderContent(originalName, mimeType string, size int) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("# %s\n\nBinary file uploaded (%s, %d bytes). Download it from the link in the document metadata.\n",
		originalName, mimeType, size)
}
