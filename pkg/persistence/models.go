package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task status constants. These mirror the Kanban board columns.
const (
	TaskStatusBacklog      = "backlog"
	TaskStatusRequirements = "requirements"
	TaskStatusInProgress   = "in-progress"
	TaskStatusDevelopment  = "development"
	TaskStatusTesting      = "testing"
	TaskStatusInReview     = "in-review"
	TaskStatusDone         = "done"
)

// Task type constants.
const (
	TaskTypeStory = "story"
	TaskTypeBug   = "bug"
	TaskTypeChore = "chore"
	TaskTypeEpic  = "epic"
)

// MoSCoW priority constants, shared by tasks and requirements.
const (
	PriorityMust   = "must"
	PriorityShould = "should"
	PriorityCould  = "could"
	PriorityWont   = "wont"
)

// Requirement status constants.
const (
	RequirementStatusDraft      = "draft"
	RequirementStatusApproved   = "approved"
	RequirementStatusInProgress = "in-progress"
	RequirementStatusActioned   = "actioned"
	RequirementStatusArchived   = "archived"
)

// Document category constants.
const (
	DocCategoryPlan  = "plan"
	DocCategorySpec  = "spec"
	DocCategoryAPI   = "api"
	DocCategoryGuide = "guide"
	DocCategoryOther = "other"
)

// Milestone status constants.
const (
	MilestoneStatusUpcoming   = "upcoming"
	MilestoneStatusInProgress = "in-progress"
	MilestoneStatusCompleted  = "completed"
)

// NotesSeparator joins appended progress notes on a requirement.
const NotesSeparator = "\n---\n"

// Task represents a Kanban board task.
//
//nolint:govet // struct alignment optimization not critical for this type
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Type        string   `json:"type"`
	Priority    string   `json:"priority"`
	Assignee    *string  `json:"assignee"`
	Labels      []string `json:"labels"`
	ProjectID   string   `json:"project_id"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	CompletedAt *string  `json:"completed_at"`
}

// Document represents a project document, possibly backed by an uploaded file.
//
//nolint:govet // struct alignment optimization not critical for this type
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	ProjectID string `json:"project_id"`
	Version   int    `json:"version"`
	CreatedBy string `json:"created_by"`
	Metadata  string `json:"metadata"` // JSON blob: upload provenance
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Requirement represents a feature request with workflow status and
// append-only progress notes.
//
//nolint:govet // struct alignment optimization not critical for this type
type Requirement struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Priority           string   `json:"priority"`
	Status             string   `json:"status"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	LinkedTasks        []string `json:"linked_tasks"`
	Notes              string   `json:"notes"`
	ProjectID          string   `json:"project_id"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
	ArchivedAt         *string  `json:"archived_at"`
}

// Milestone represents a dated delivery target.
//
//nolint:govet // struct alignment optimization not critical for this type
type Milestone struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
	Progress    int     `json:"progress"`
	ProjectID   string  `json:"project_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Project is the top-level container scoping all other entities.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// User represents a dashboard user.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// Activity represents an entry in the activity log.
type Activity struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Metadata  string `json:"metadata"`
	CreatedAt string `json:"created_at"`
}

// ValidTaskStatuses returns all valid task statuses in board order.
func ValidTaskStatuses() []string {
	return []string{
		TaskStatusBacklog,
		TaskStatusRequirements,
		TaskStatusInProgress,
		TaskStatusDevelopment,
		TaskStatusTesting,
		TaskStatusInReview,
		TaskStatusDone,
	}
}

// IsValidTaskStatus checks if a status string is a valid task status.
func IsValidTaskStatus(status string) bool {
	for _, s := range ValidTaskStatuses() {
		if status == s {
			return true
		}
	}
	return false
}

// IsValidTaskType checks if a type string is a valid task type.
func IsValidTaskType(taskType string) bool {
	switch taskType {
	case TaskTypeStory, TaskTypeBug, TaskTypeChore, TaskTypeEpic:
		return true
	}
	return false
}

// IsValidPriority checks if a priority string is a valid MoSCoW priority.
func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityMust, PriorityShould, PriorityCould, PriorityWont:
		return true
	}
	return false
}

// IsValidDocCategory checks if a category string is a valid document category.
func IsValidDocCategory(category string) bool {
	switch category {
	case DocCategoryPlan, DocCategorySpec, DocCategoryAPI, DocCategoryGuide, DocCategoryOther:
		return true
	}
	return false
}

// IsValidMilestoneStatus checks if a status string is a valid milestone status.
func IsValidMilestoneStatus(status string) bool {
	switch status {
	case MilestoneStatusUpcoming, MilestoneStatusInProgress, MilestoneStatusCompleted:
		return true
	}
	return false
}

// IsValidRequirementStatus checks if a status string is a valid requirement status.
func IsValidRequirementStatus(status string) bool {
	switch status {
	case RequirementStatusDraft, RequirementStatusApproved, RequirementStatusInProgress,
		RequirementStatusActioned, RequirementStatusArchived:
		return true
	}
	return false
}

// nowISO returns the current UTC time as an ISO-8601 string. All stored
// timestamps use this format.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Entity IDs are a type prefix plus a millisecond timestamp. Collision
// probability is ignored at this system's scale.

// GenerateTaskID generates a new task ID.
func GenerateTaskID() string {
	return fmt.Sprintf("task-%d", time.Now().UnixMilli())
}

// GenerateDocumentID generates a new document ID.
func GenerateDocumentID() string {
	return fmt.Sprintf("doc-%d", time.Now().UnixMilli())
}

// GenerateRequirementID generates a new requirement ID.
func GenerateRequirementID() string {
	return fmt.Sprintf("req-%d", time.Now().UnixMilli())
}

// GenerateMilestoneID generates a new milestone ID.
func GenerateMilestoneID() string {
	return fmt.Sprintf("milestone-%d", time.Now().UnixMilli())
}

// GenerateActivityID generates a new UUID for an activity entry.
func GenerateActivityID() string {
	return uuid.New().String()
}

// encodeList serializes a string list to its canonical stored form.
func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		// Marshaling []string cannot fail; keep the column well-formed anyway.
		return "[]"
	}
	return string(data)
}

// decodeList deserializes a stored list column. Malformed or empty values
// decode to an empty list rather than failing the read path.
func decodeList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}
	if items == nil {
		return []string{}
	}
	return items
}

// NormalizeList converts caller-supplied list input into the canonical
// serialized form. Callers may pass a native JSON array or a pre-serialized
// array string; both normalize to the same stored value.
func NormalizeList(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "[]", nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return encodeList(items), nil
	}

	var serialized string
	if err := json.Unmarshal(raw, &serialized); err == nil {
		if serialized == "" {
			return "[]", nil
		}
		var check []string
		if err := json.Unmarshal([]byte(serialized), &check); err != nil {
			return "", fmt.Errorf("pre-serialized list is not a JSON string array: %w", err)
		}
		return encodeList(check), nil
	}

	return "", fmt.Errorf("list value must be a string array or a serialized string array")
}
