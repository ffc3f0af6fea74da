package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TaskType tags the sub-workflow that runs a task.
type TaskType string

const (
	TaskSearch      TaskType = "search"
	TaskSmartSearch TaskType = "smart_search"
	TaskCreate      TaskType = "create"
	TaskFormat      TaskType = "format"
)

// TaskTypes lists the known task tags in declaration order.
var TaskTypes = []TaskType{TaskSearch, TaskSmartSearch, TaskCreate, TaskFormat}

// Valid reports whether t is one of the known tags.
func (t TaskType) Valid() bool {
	switch t {
	case TaskSearch, TaskSmartSearch, TaskCreate, TaskFormat:
		return true
	}
	return false
}

// Task is one unit of work in a plan. On the wire it is the positional triple
// [type, query, dependencies]; for search tasks the query slot is a list.
type Task struct {
	Type         TaskType
	Query        string
	Queries      []string
	Dependencies []int
}

// MarshalJSON encodes the task as its positional triple.
func (t Task) MarshalJSON() ([]byte, error) {
	deps := t.Dependencies
	if deps == nil {
		deps = []int{}
	}
	var query any = t.Query
	if t.Type == TaskSearch {
		queries := t.Queries
		if queries == nil {
			queries = []string{}
		}
		query = queries
	}
	return json.Marshal([]any{string(t.Type), query, deps})
}

// UnmarshalJSON decodes the positional triple. It checks shape only; list
// level invariants are enforced by Validate.
func (t *Task) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("task must be a [type, query, dependencies] triple: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("task has %d elements, want 3", len(parts))
	}

	var typ string
	if err := json.Unmarshal(parts[0], &typ); err != nil {
		return fmt.Errorf("task type must be a string: %w", err)
	}
	out := Task{Type: TaskType(strings.TrimSpace(typ))}

	if !isNull(parts[1]) {
		var single string
		if err := json.Unmarshal(parts[1], &single); err == nil {
			if out.Type == TaskSearch {
				out.Queries = []string{single}
			} else {
				out.Query = single
			}
		} else {
			var many []string
			if err := json.Unmarshal(parts[1], &many); err != nil {
				return fmt.Errorf("task query must be a string or a list of strings")
			}
			if out.Type != TaskSearch {
				return fmt.Errorf("task query of %q must be a string, got a list", out.Type)
			}
			out.Queries = many
		}
	}

	if !isNull(parts[2]) {
		if err := json.Unmarshal(parts[2], &out.Dependencies); err != nil {
			return fmt.Errorf("task dependencies must be a list of integers: %w", err)
		}
	}
	*t = out
	return nil
}

// Validate checks the task invariants for a task sitting at position index.
func (t Task) Validate(index int) error {
	if !t.Type.Valid() {
		return fmt.Errorf("unknown task type %q", t.Type)
	}
	switch t.Type {
	case TaskCreate:
		if strings.TrimSpace(t.Query) == "" {
			return fmt.Errorf("create task requires a query")
		}
	case TaskSearch:
		if len(t.Queries) == 0 {
			return fmt.Errorf("search task requires at least one query")
		}
		for _, q := range t.Queries {
			if strings.TrimSpace(q) == "" {
				return fmt.Errorf("search task has an empty query")
			}
		}
	}
	for _, dep := range t.Dependencies {
		if dep < 0 || dep >= index {
			return fmt.Errorf("dependency %d must reference an earlier task", dep)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
