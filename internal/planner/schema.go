package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// ValidationError describes one problem found in a candidate plan. Index is
// the task position, or -1 when the problem concerns the list as a whole.
type ValidationError struct {
	Index   int
	Message string
}

func (e ValidationError) Error() string {
	if e.Index < 0 {
		return e.Message
	}
	return fmt.Sprintf("task %d: %s", e.Index, e.Message)
}

// ValidationErrors aggregates every problem in a candidate plan.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ParseTasks decodes and validates a raw candidate plan. Any problem discards
// the whole list; nothing is repaired.
func ParseTasks(raw []json.RawMessage) ([]state.Task, error) {
	if len(raw) == 0 {
		return nil, ValidationErrors{{Index: -1, Message: "plan has no tasks"}}
	}
	var errs ValidationErrors
	tasks := make([]state.Task, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal(item, &tasks[i]); err != nil {
			errs = append(errs, ValidationError{Index: i, Message: err.Error()})
			continue
		}
		if err := tasks[i].Validate(i); err != nil {
			errs = append(errs, ValidationError{Index: i, Message: err.Error()})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return tasks, nil
}

// Describe renders tasks as a numbered list for the operator.
func Describe(tasks []state.Task) string {
	var b strings.Builder
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s", i, t.Type)
		switch {
		case t.Type == state.TaskSearch:
			fmt.Fprintf(&b, ": %s", strings.Join(t.Queries, " | "))
		case t.Query != "":
			fmt.Fprintf(&b, ": %s", t.Query)
		}
		if len(t.Dependencies) > 0 {
			deps := make([]string, len(t.Dependencies))
			for j, d := range t.Dependencies {
				deps[j] = fmt.Sprint(d)
			}
			fmt.Fprintf(&b, " (uses %s)", strings.Join(deps, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
