// Package state holds the records threaded through a report run: the top-level
// RunState, the per-task sub-workflow states and the Task model itself. All of
// them serialize to the checkpoint JSON layout, so field names are stable.
package state

import "encoding/json"

// Verdict is the tri-state retry flag driving conditional transitions.
type Verdict string

const (
	RetryPending Verdict = ""
	RetryYes     Verdict = "yes"
	RetryNo      Verdict = "no"
)

// Control carries the fields shared by every state shape.
type Control struct {
	Retry        Verdict `json:"retry"`
	MaxRetry     int     `json:"max_retry"`
	LoadRecovery bool    `json:"load_recovery"`
	RecoveryPath string  `json:"recovery_path"`
}

// Ctl returns the control block. Every state embeds Control, so this method is
// promoted and makes each of them a Stateful.
func (c *Control) Ctl() *Control { return c }

// Stateful is implemented by every state shape.
type Stateful interface {
	Ctl() *Control
}

// RunState is the record owned by the orchestrator for one run.
type RunState struct {
	Query      string   `json:"query"`
	Title      string   `json:"title"`
	Tasks      []Task   `json:"tasks"`
	TaskOutput []string `json:"task_output"`
	Control

	// draft holds the planner output between generation and approval. It is
	// never persisted: only an approved plan lands in Tasks.
	draft []json.RawMessage
}

// NewRunState returns a fresh run for query.
func NewRunState(query string, maxRetry int, recoveryPath string) *RunState {
	return &RunState{
		Query:      query,
		Tasks:      []Task{},
		TaskOutput: []string{},
		Control: Control{
			MaxRetry:     maxRetry,
			RecoveryPath: recoveryPath,
		},
	}
}

// Draft returns the raw candidate task list produced by the last planning step.
func (s *RunState) Draft() []json.RawMessage { return s.draft }

// ClearDraft drops the candidate task list.
func (s *RunState) ClearDraft() { s.draft = nil }

// HasTasks reports whether an approved plan exists.
func (s *RunState) HasTasks() bool { return len(s.Tasks) > 0 }

// Output returns the most recent task output, or "" when nothing ran.
func (s *RunState) Output() string {
	if len(s.TaskOutput) == 0 {
		return ""
	}
	return s.TaskOutput[len(s.TaskOutput)-1]
}

// SearchState is the sub-workflow state of a search task.
type SearchState struct {
	Queries       []string `json:"queries"`
	SearchResults string   `json:"search_results"`
	SearchSummary string   `json:"search_summary"`
	Control
}

// SmartSearchState is the sub-workflow state of a smart_search task.
type SmartSearchState struct {
	Background         string   `json:"background"`
	SmartSearchQueries []string `json:"smart_search_queries"`
	SmartSearchSummary string   `json:"smart_search_summary"`
	Control
}

// CreateState is the sub-workflow state of a create task.
type CreateState struct {
	Query        string `json:"query"`
	Background   string `json:"background"`
	CreateOutput string `json:"create_output"`
	Control
}

// FormatState is the sub-workflow state of a format task.
type FormatState struct {
	Background string `json:"background"`
	PreReport  string `json:"pre_report"`
	Report     string `json:"report"`
	Control
}
