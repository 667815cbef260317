package persistence

import (
	"encoding/json"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	id, err := store.CreateTask(&Task{Title: "X"})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if !strings.HasPrefix(id, "task-") {
		t.Errorf("Expected generated id with task- prefix, got %s", id)
	}

	task, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if task.Status != TaskStatusBacklog {
		t.Errorf("Expected default status backlog, got %s", task.Status)
	}
	if task.Type != TaskTypeStory {
		t.Errorf("Expected default type story, got %s", task.Type)
	}
	if task.Priority != PriorityShould {
		t.Errorf("Expected default priority should, got %s", task.Priority)
	}
	if task.ProjectID != DefaultProjectID {
		t.Errorf("Expected default project, got %s", task.ProjectID)
	}
	if task.CompletedAt != nil {
		t.Errorf("Expected nil completed_at, got %v", *task.CompletedAt)
	}
	if task.Labels == nil || len(task.Labels) != 0 {
		t.Errorf("Expected empty labels list, got %v", task.Labels)
	}
}

func TestTaskLabelsRoundTrip(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	id, err := store.CreateTask(&Task{
		ID:     "task-labels",
		Title:  "Labeled",
		Labels: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	task, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if len(task.Labels) != 2 || task.Labels[0] != "a" || task.Labels[1] != "b" {
		t.Errorf("Labels did not round-trip, got %v", task.Labels)
	}
}

func TestUpdateTaskStatusNarrowPath(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	assignee := "user-admin"
	id, err := store.CreateTask(&Task{
		ID:          "task-narrow",
		Title:       "Narrow",
		Description: "Only status should move",
		Type:        TaskTypeBug,
		Priority:    PriorityMust,
		Assignee:    &assignee,
		Labels:      []string{"keep", "me"},
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	before, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if err := store.UpdateTaskStatus(id, TaskStatusDone); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}

	after, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if after.Status != TaskStatusDone {
		t.Errorf("Expected status done, got %s", after.Status)
	}
	if after.CompletedAt == nil {
		t.Error("Expected completed_at set when status is done")
	}

	// All other fields remain equal to their pre-update values.
	if after.Title != before.Title || after.Description != before.Description ||
		after.Type != before.Type || after.Priority != before.Priority ||
		after.ProjectID != before.ProjectID || after.CreatedAt != before.CreatedAt {
		t.Error("Narrow status update changed unrelated fields")
	}
	if after.Assignee == nil || *after.Assignee != assignee {
		t.Error("Narrow status update changed assignee")
	}
	if len(after.Labels) != 2 || after.Labels[0] != "keep" || after.Labels[1] != "me" {
		t.Errorf("Narrow status update changed labels: %v", after.Labels)
	}

	// Moving out of done clears completed_at.
	if err := store.UpdateTaskStatus(id, TaskStatusTesting); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	after, err = store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if after.CompletedAt != nil {
		t.Errorf("Expected completed_at cleared, got %v", *after.CompletedAt)
	}
}

func TestUpdateTaskStatusNotFound(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	err := store.UpdateTaskStatus("task-missing", TaskStatusDone)
	if err == nil {
		t.Fatal("Expected error for missing task")
	}
	if !IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskPreservesOmittedFields(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	id, err := store.CreateTask(&Task{
		ID:          "task-partial",
		Title:       "Original title",
		Description: "Original description",
		Priority:    PriorityMust,
		Labels:      []string{"x"},
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := store.UpdateTask(id, &TaskUpdate{Title: strPtr("New title")}); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	task, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if task.Title != "New title" {
		t.Errorf("Expected updated title, got %s", task.Title)
	}
	if task.Description != "Original description" {
		t.Errorf("Omitted description was changed: %q", task.Description)
	}
	if task.Priority != PriorityMust {
		t.Errorf("Omitted priority was changed: %s", task.Priority)
	}
	if len(task.Labels) != 1 || task.Labels[0] != "x" {
		t.Errorf("Omitted labels were changed: %v", task.Labels)
	}
}

func TestUpdateTaskKeepsCompletionTimestamp(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	id, err := store.CreateTask(&Task{ID: "task-done", Title: "Done", Status: TaskStatusDone})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	first, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if first.CompletedAt == nil {
		t.Fatal("Expected completed_at on done task")
	}

	// A full edit that keeps status done must not re-stamp completed_at.
	if err := store.UpdateTask(id, &TaskUpdate{Title: strPtr("Done v2")}); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	second, err := store.GetTaskByID(id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if second.CompletedAt == nil || *second.CompletedAt != *first.CompletedAt {
		t.Error("completed_at changed on an edit that kept status done")
	}
}

func TestDeleteTaskIdempotent(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	id, err := store.CreateTask(&Task{ID: "task-del", Title: "Delete me"})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := store.DeleteTask(id); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	// Deleting again still reports success.
	if err := store.DeleteTask(id); err != nil {
		t.Errorf("Second delete reported error: %v", err)
	}
	if err := store.DeleteTask("task-never-existed"); err != nil {
		t.Errorf("Delete of unknown id reported error: %v", err)
	}
}

func TestListTasksOrderAndFilter(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	// Explicit IDs pin the tie-break for rows created within one second.
	for _, id := range []string{"task-a", "task-b", "task-c"} {
		if _, err := store.CreateTask(&Task{ID: id, Title: id}); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
	}
	now := nowISO()
	if _, err := store.db.Exec(`
		INSERT INTO projects (id, name, description, status, created_at, updated_at)
		VALUES ('proj-other', 'Other', '', 'active', ?, ?)
	`, now, now); err != nil {
		t.Fatalf("Failed to create second project: %v", err)
	}
	if _, err := store.CreateTask(&Task{ID: "task-other", Title: "other", ProjectID: "proj-other"}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	tasks, err := store.ListTasks(DefaultProjectID)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks in default project, got %d", len(tasks))
	}
	// created_at DESC with id DESC tie-break.
	if tasks[0].ID != "task-c" || tasks[2].ID != "task-a" {
		t.Errorf("Unexpected ordering: %s, %s, %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}

	all, err := store.ListTasks("")
	if err != nil {
		t.Fatalf("Failed to list all tasks: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 tasks total, got %d", len(all))
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"native array", `["a","b"]`, `["a","b"]`, false},
		{"empty array", `[]`, `[]`, false},
		{"pre-serialized", `"[\"a\",\"b\"]"`, `["a","b"]`, false},
		{"empty string", `""`, `[]`, false},
		{"garbage string", `"not json"`, "", true},
		{"number", `42`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeList(json.RawMessage(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeList(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
