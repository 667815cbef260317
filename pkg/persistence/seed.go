package persistence

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed_tasks.yaml
var seedTasksYAML []byte

// seedTask mirrors one entry in seed_tasks.yaml.
type seedTask struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	Type        string   `yaml:"type"`
	Priority    string   `yaml:"priority"`
	Labels      []string `yaml:"labels"`
}

type seedFile struct {
	Tasks []seedTask `yaml:"tasks"`
}

// SeedDemoTasks inserts the demo tasks only if the tasks table is empty.
// It runs once at process start; reads never trigger seeding. Each insert
// is independently fallible; the first failure aborts the rest.
func (s *Store) SeedDemoTasks() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}
	if count > 0 {
		return nil
	}

	var seeds seedFile
	if err := yaml.Unmarshal(seedTasksYAML, &seeds); err != nil {
		return fmt.Errorf("failed to parse embedded seed tasks: %w", err)
	}

	for i := range seeds.Tasks {
		st := &seeds.Tasks[i]
		task := &Task{
			ID:          st.ID,
			Title:       st.Title,
			Description: st.Description,
			Status:      st.Status,
			Type:        st.Type,
			Priority:    st.Priority,
			Labels:      st.Labels,
			ProjectID:   DefaultProjectID,
		}
		if _, err := s.CreateTask(task); err != nil {
			return fmt.Errorf("failed to seed task %s: %w", st.ID, err)
		}
	}

	return nil
}
