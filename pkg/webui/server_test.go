package webui

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"projecthub/pkg/config"
	"projecthub/pkg/persistence"
)

// newTestServer builds a server over a fresh temp database and returns the
// mux to drive with httptest.
func newTestServer(t *testing.T) (*http.ServeMux, *persistence.Store) {
	t.Helper()

	tempDir := t.TempDir()
	db, err := persistence.InitializeDatabase(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := persistence.NewStore(db)
	if err := store.EnsureDefaultProject(); err != nil {
		t.Fatalf("Failed to ensure default project: %v", err)
	}
	if err := store.EnsureDefaultUser(); err != nil {
		t.Fatalf("Failed to ensure default user: %v", err)
	}

	cfg := config.Default()
	cfg.UploadsDir = filepath.Join(tempDir, "uploads")
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}

	mux := http.NewServeMux()
	NewServer(store, cfg).RegisterRoutes(mux)
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestCreateTaskEndToEnd(t *testing.T) {
	mux, _ := newTestServer(t)

	w := doJSON(t, mux, http.MethodPost, "/api/tasks", map[string]string{"title": "X"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Every mutating success body carries ok:true alongside the entity.
	var envelope map[string]any
	decodeBody(t, w, &envelope)
	if ok, _ := envelope["ok"].(bool); !ok {
		t.Errorf("Response body lacks ok:true: %v", envelope)
	}

	var task persistence.Task
	decodeBody(t, w, &task)

	if !strings.HasPrefix(task.ID, "task-") {
		t.Errorf("Expected task- id prefix, got %s", task.ID)
	}
	if task.Status != persistence.TaskStatusBacklog {
		t.Errorf("Expected backlog default, got %s", task.Status)
	}
	if task.Priority != persistence.PriorityShould {
		t.Errorf("Expected should default, got %s", task.Priority)
	}
	if task.CompletedAt != nil {
		t.Errorf("Expected null completed_at, got %v", *task.CompletedAt)
	}

	// The task shows up in the list.
	list := doJSON(t, mux, http.MethodGet, "/api/tasks", nil)
	var tasks []persistence.Task
	decodeBody(t, list, &tasks)
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("Expected created task in list, got %v", tasks)
	}
}

func TestTaskNarrowStatusMoveWire(t *testing.T) {
	mux, store := newTestServer(t)

	assignee := "user-admin"
	id, err := store.CreateTask(&persistence.Task{
		ID: "task-wire", Title: "Wire", Assignee: &assignee, Labels: []string{"l"},
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	w := doJSON(t, mux, http.MethodPut, "/api/tasks", map[string]string{"id": id, "status": "done"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	task, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if task.Status != persistence.TaskStatusDone || task.CompletedAt == nil {
		t.Error("Narrow move did not set done/completed_at")
	}
	if task.Assignee == nil || len(task.Labels) != 1 {
		t.Error("Narrow move touched unrelated fields")
	}

	// Unknown id is a 404, invalid status a 400, missing body a 400.
	if w := doJSON(t, mux, http.MethodPut, "/api/tasks", map[string]string{"id": "task-none", "status": "done"}); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", w.Code)
	}
	if w := doJSON(t, mux, http.MethodPut, "/api/tasks", map[string]string{"id": id, "status": "bogus"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid status, got %d", w.Code)
	}
	if w := doJSON(t, mux, http.MethodPut, "/api/tasks", map[string]string{"status": "done"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing id, got %d", w.Code)
	}
}

func TestTaskPostUpsertsExistingID(t *testing.T) {
	mux, store := newTestServer(t)

	if _, err := store.CreateTask(&persistence.Task{ID: "task-up", Title: "Before", Priority: persistence.PriorityMust}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	w := doJSON(t, mux, http.MethodPost, "/api/tasks", map[string]string{"id": "task-up", "title": "After"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var envelope map[string]any
	decodeBody(t, w, &envelope)
	if ok, _ := envelope["ok"].(bool); !ok {
		t.Errorf("Upsert response body lacks ok:true: %v", envelope)
	}

	task, err := store.GetTaskByID("task-up")
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if task.Title != "After" {
		t.Errorf("Expected upserted title, got %s", task.Title)
	}
	if task.Priority != persistence.PriorityMust {
		t.Errorf("Upsert dropped omitted priority: %s", task.Priority)
	}

	list := doJSON(t, mux, http.MethodGet, "/api/tasks", nil)
	var tasks []persistence.Task
	decodeBody(t, list, &tasks)
	if len(tasks) != 1 {
		t.Errorf("Upsert created a duplicate row: %d tasks", len(tasks))
	}
}

func TestTaskDeleteRequiresID(t *testing.T) {
	mux, _ := newTestServer(t)

	if w := doJSON(t, mux, http.MethodDelete, "/api/tasks", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without id, got %d", w.Code)
	}
	// Deleting an unknown id still succeeds.
	if w := doJSON(t, mux, http.MethodDelete, "/api/tasks?id=task-none", nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for unknown id, got %d", w.Code)
	}
}

func TestRequirementArchiveWireContract(t *testing.T) {
	mux, store := newTestServer(t)

	if _, err := store.CreateRequirement(&persistence.Requirement{ID: "req-wire", Title: "Wire"}); err != nil {
		t.Fatalf("Failed to create requirement: %v", err)
	}

	w := doJSON(t, mux, http.MethodPut, "/api/requirements/archive?id=req-wire", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK         bool   `json:"ok"`
		ID         string `json:"id"`
		Status     string `json:"status"`
		ArchivedAt string `json:"archived_at"`
	}
	decodeBody(t, w, &resp)

	if !resp.OK || resp.ID != "req-wire" || resp.Status != "archived" || resp.ArchivedAt == "" {
		t.Errorf("Unexpected archive response: %+v", resp)
	}

	// Archiving again returns the same timestamp.
	again := doJSON(t, mux, http.MethodPut, "/api/requirements/archive?id=req-wire", nil)
	var resp2 struct {
		ArchivedAt string `json:"archived_at"`
	}
	decodeBody(t, again, &resp2)
	if resp2.ArchivedAt != resp.ArchivedAt {
		t.Errorf("archived_at changed on second archive: %s vs %s", resp.ArchivedAt, resp2.ArchivedAt)
	}

	if w := doJSON(t, mux, http.MethodPut, "/api/requirements/archive?id=req-none", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", w.Code)
	}
	if w := doJSON(t, mux, http.MethodPut, "/api/requirements/archive", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without id, got %d", w.Code)
	}
}

func TestRequirementUpdatePreservesOmittedOverWire(t *testing.T) {
	mux, store := newTestServer(t)

	if _, err := store.CreateRequirement(&persistence.Requirement{
		ID:          "req-keep",
		Title:       "Keep",
		Description: "Long description",
		Priority:    persistence.PriorityMust,
	}); err != nil {
		t.Fatalf("Failed to create requirement: %v", err)
	}

	w := doJSON(t, mux, http.MethodPut, "/api/requirements", map[string]string{
		"id": "req-keep", "status": "approved",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var req persistence.Requirement
	decodeBody(t, w, &req)
	if req.Status != persistence.RequirementStatusApproved {
		t.Errorf("Expected approved, got %s", req.Status)
	}
	if req.Description != "Long description" || req.Priority != persistence.PriorityMust {
		t.Error("Wire update dropped omitted fields")
	}
}

func TestDocumentTextUpload(t *testing.T) {
	mux, store := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "meeting notes!.txt")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte("decisions were made")); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK       bool   `json:"ok"`
		ID       string `json:"id"`
		Filename string `json:"filename"`
	}
	decodeBody(t, w, &resp)
	if !resp.OK || resp.ID == "" {
		t.Fatalf("Unexpected upload response: %+v", resp)
	}
	if strings.Contains(resp.Filename, "!") || strings.Contains(resp.Filename, " ") {
		t.Errorf("Stored filename was not sanitized: %s", resp.Filename)
	}

	doc, err := store.GetDocumentByID(resp.ID)
	if err != nil {
		t.Fatalf("Failed to get uploaded document: %v", err)
	}
	if doc.Content != "decisions were made" {
		t.Errorf("Text upload content mismatch: %q", doc.Content)
	}

	var meta struct {
		OriginalName string `json:"originalName"`
		Size         int    `json:"size"`
		Filepath     string `json:"filepath"`
	}
	if err := json.Unmarshal([]byte(doc.Metadata), &meta); err != nil {
		t.Fatalf("Failed to decode metadata %q: %v", doc.Metadata, err)
	}
	if meta.OriginalName != "meeting notes!.txt" {
		t.Errorf("Expected originalName preserved, got %s", meta.OriginalName)
	}
	if meta.Size != len("decisions were made") {
		t.Errorf("Expected size %d, got %d", len("decisions were made"), meta.Size)
	}
	if !strings.HasPrefix(meta.Filepath, "/uploads/") {
		t.Errorf("Expected /uploads/ filepath, got %s", meta.Filepath)
	}
}

func TestBinaryUploadGetsPlaceholder(t *testing.T) {
	mux, store := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "diagram.png")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte{0x89, 0x50, 0x4e, 0x47}); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &resp)

	doc, err := store.GetDocumentByID(resp.ID)
	if err != nil {
		t.Fatalf("Failed to get uploaded document: %v", err)
	}
	if !strings.Contains(doc.Content, "Binary file uploaded") {
		t.Errorf("Expected placeholder content, got %q", doc.Content)
	}
}

func TestChatEndpoint(t *testing.T) {
	mux, store := newTestServer(t)

	if _, err := store.CreateTask(&persistence.Task{ID: "task-chat", Title: "A", Status: persistence.TaskStatusDone}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	w := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"question": "What's the current project status?"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Reply string `json:"reply"`
	}
	decodeBody(t, w, &resp)
	if !strings.Contains(resp.Reply, "Done: 1") {
		t.Errorf("Expected live counts in reply, got %q", resp.Reply)
	}

	if w := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty question, got %d", w.Code)
	}
}

func TestActivityRecordedForMutations(t *testing.T) {
	mux, _ := newTestServer(t)

	doJSON(t, mux, http.MethodPost, "/api/tasks", map[string]string{"title": "Tracked"})

	w := doJSON(t, mux, http.MethodGet, "/api/activity", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var entries []persistence.Activity
	decodeBody(t, w, &entries)
	if len(entries) == 0 || entries[0].Type != "task_created" {
		t.Errorf("Expected task_created activity, got %v", entries)
	}
}

func TestMetricsExposed(t *testing.T) {
	mux, _ := newTestServer(t)

	doJSON(t, mux, http.MethodGet, "/api/tasks", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "projecthub_http_requests_total") {
		t.Error("Expected request counter in /metrics output")
	}
}

func TestDashboardRenders(t *testing.T) {
	mux, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ProjectHub") {
		t.Error("Expected dashboard markup")
	}
	if !strings.Contains(w.Body.String(), `data-status="backlog"`) {
		t.Error("Expected board columns in markup")
	}
}

func TestInvalidEnumValuesRejected(t *testing.T) {
	mux, store := newTestServer(t)

	if _, err := store.CreateTask(&persistence.Task{ID: "task-enum", Title: "Enum"}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := store.CreateMilestone(&persistence.Milestone{ID: "milestone-enum", Title: "Enum"}); err != nil {
		t.Fatalf("Failed to create milestone: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   map[string]any
	}{
		{"task type", http.MethodPost, "/api/tasks", map[string]any{"title": "T", "type": "saga"}},
		{"task priority", http.MethodPost, "/api/tasks", map[string]any{"title": "T", "priority": "urgent"}},
		{"task type on edit", http.MethodPut, "/api/tasks", map[string]any{"id": "task-enum", "type": "saga"}},
		{"document category", http.MethodPost, "/api/documents", map[string]any{"title": "D", "category": "memo"}},
		{"requirement priority", http.MethodPost, "/api/requirements", map[string]any{"title": "R", "priority": "urgent"}},
		{"milestone status", http.MethodPost, "/api/milestones", map[string]any{"title": "M", "status": "overdue"}},
		{"milestone status on edit", http.MethodPut, "/api/milestones", map[string]any{"id": "milestone-enum", "status": "overdue"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, mux, tc.method, tc.path, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for invalid %s, got %d: %s", tc.name, w.Code, w.Body.String())
			}
		})
	}
}

func TestMilestoneProgressValidation(t *testing.T) {
	mux, _ := newTestServer(t)

	w := doJSON(t, mux, http.MethodPost, "/api/milestones", map[string]any{"title": "M", "progress": 150})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out-of-range progress, got %d", w.Code)
	}

	w = doJSON(t, mux, http.MethodPost, "/api/milestones", map[string]any{"title": "M", "progress": 60})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var m persistence.Milestone
	decodeBody(t, w, &m)
	if m.Progress != 60 {
		t.Errorf("Expected progress 60, got %d", m.Progress)
	}
}
