// Package assistant implements the deterministic project chat. Replies are
// produced by an ordered rule table matched against the lowercased question,
// rendered from a snapshot of current project data. There is no model call
// and no conversation state.
package assistant

import (
	"fmt"
	"strings"

	"projecthub/pkg/logx"
	"projecthub/pkg/persistence"
)

// Snapshot captures the project data a responder may render from. It is
// assembled per request so answers reflect the database at ask time.
type Snapshot struct {
	TasksByStatus   map[string]int
	InProgressTasks []*persistence.Task
	MustHaveReqs    []*persistence.Requirement
	Milestones      []*persistence.Milestone
	DocumentCount   int
}

// Rule pairs a predicate with a responder. Rules are evaluated in order and
// the first match wins.
type Rule struct {
	Match   func(question string) bool
	Respond func(snap *Snapshot) string
}

// contains builds a predicate matching a lowercase substring of the question.
func contains(fragment string) func(string) bool {
	return func(question string) bool {
		return strings.Contains(question, fragment)
	}
}

// Service answers chat questions against live project data.
type Service struct {
	store  *persistence.Store
	rules  []Rule
	logger *logx.Logger
}

// NewService creates a chat service over the given store.
func NewService(store *persistence.Store) *Service {
	return &Service{
		store: store,
		rules: []Rule{
			{contains("status"), respondStatus},
			{contains("priority"), respondPriorities},
			{contains("requirement"), respondPriorities},
			{contains("in progress"), respondInProgress},
			{contains("in development"), respondInProgress},
			{contains("summary"), respondSummary},
			{contains("milestone"), respondMilestones},
		},
		logger: logx.NewLogger("assistant"),
	}
}

// Ask returns the reply for a question. A question matching no rule gets
// the fallback prompt; an empty question is an error.
func (s *Service) Ask(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", fmt.Errorf("question is required")
	}

	snap, err := s.buildSnapshot()
	if err != nil {
		return "", fmt.Errorf("failed to build project snapshot: %w", err)
	}

	lower := strings.ToLower(trimmed)
	for _, rule := range s.rules {
		if rule.Match(lower) {
			return rule.Respond(snap), nil
		}
	}

	s.logger.Debug("No rule matched question (%d chars), using fallback", len(trimmed))
	return fallback(trimmed), nil
}

func (s *Service) buildSnapshot() (*Snapshot, error) {
	tasks, err := s.store.ListTasks("")
	if err != nil {
		return nil, err
	}
	reqs, err := s.store.ListRequirements("")
	if err != nil {
		return nil, err
	}
	milestones, err := s.store.ListMilestones("")
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocuments("")
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		TasksByStatus: make(map[string]int),
		Milestones:    milestones,
		DocumentCount: len(docs),
	}
	for _, task := range tasks {
		snap.TasksByStatus[task.Status]++
		if task.Status == persistence.TaskStatusInProgress {
			snap.InProgressTasks = append(snap.InProgressTasks, task)
		}
	}
	for _, req := range reqs {
		if req.Priority == persistence.PriorityMust && req.Status != persistence.RequirementStatusArchived {
			snap.MustHaveReqs = append(snap.MustHaveReqs, req)
		}
	}
	return snap, nil
}

func respondStatus(snap *Snapshot) string {
	var b strings.Builder
	b.WriteString("**Project Status**\n\n")
	fmt.Fprintf(&b, "- Done: %d\n", snap.TasksByStatus[persistence.TaskStatusDone])
	fmt.Fprintf(&b, "- In progress: %d\n", snap.TasksByStatus[persistence.TaskStatusInProgress])
	fmt.Fprintf(&b, "- Testing: %d\n", snap.TasksByStatus[persistence.TaskStatusTesting])
	fmt.Fprintf(&b, "- Backlog: %d\n", snap.TasksByStatus[persistence.TaskStatusBacklog])
	fmt.Fprintf(&b, "\nDocuments on file: %d\n", snap.DocumentCount)
	return b.String()
}

func respondPriorities(snap *Snapshot) string {
	if len(snap.MustHaveReqs) == 0 {
		return "**Top Priority Requirements**\n\nNo must-have requirements are open right now."
	}
	var b strings.Builder
	b.WriteString("**Top Priority Requirements (Must Have)**\n\n")
	for i, req := range snap.MustHaveReqs {
		fmt.Fprintf(&b, "%d. **%s** — %s\n", i+1, req.Title, req.Status)
	}
	return b.String()
}

func respondInProgress(snap *Snapshot) string {
	if len(snap.InProgressTasks) == 0 {
		return "**Tasks Currently in Development**\n\nNothing is in progress right now."
	}
	var b strings.Builder
	b.WriteString("**Tasks Currently in Development**\n\n")
	for i, task := range snap.InProgressTasks {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, task.Title)
	}
	return b.String()
}

func respondSummary(snap *Snapshot) string {
	total := 0
	for _, n := range snap.TasksByStatus {
		total += n
	}
	done := snap.TasksByStatus[persistence.TaskStatusDone]
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	var b strings.Builder
	b.WriteString("**Project Summary**\n\n")
	fmt.Fprintf(&b, "**Progress:** %d%% complete (%d of %d tasks done)\n", pct, done, total)
	fmt.Fprintf(&b, "**Open must-have requirements:** %d\n", len(snap.MustHaveReqs))
	fmt.Fprintf(&b, "**Milestones tracked:** %d\n", len(snap.Milestones))
	return b.String()
}

func respondMilestones(snap *Snapshot) string {
	if len(snap.Milestones) == 0 {
		return "**Milestones**\n\nNo milestones are defined yet."
	}
	var b strings.Builder
	b.WriteString("**Milestones**\n\n")
	for _, m := range snap.Milestones {
		due := "no due date"
		if m.DueDate != nil {
			due = "due " + *m.DueDate
		}
		fmt.Fprintf(&b, "- **%s** (%s, %d%%, %s)\n", m.Title, m.Status, m.Progress, due)
	}
	return b.String()
}

func fallback(question string) string {
	return "I understand you're asking about: *" + question + "*\n\n" +
		"I'm your project assistant. I can help you:\n\n" +
		"• Understand project requirements\n" +
		"• Track task progress\n" +
		"• Summarize milestones\n" +
		"• Generate a project summary\n\n" +
		"Could you be more specific about what you'd like to know?"
}
