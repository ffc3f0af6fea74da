package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// ErrUnknownTask is returned for a task type without a registered handler.
var ErrUnknownTask = errors.New("unknown task type")

// Handler runs one task type as a sub-workflow.
type Handler interface {
	Type() state.TaskType
	// NewState builds the sub-workflow state for task. background is the
	// joined output of the task's dependencies.
	NewState(task state.Task, background string) state.Stateful
	Run(ctx context.Context, st state.Stateful) error
	// Summary returns the field appended to the run's task outputs.
	Summary(st state.Stateful) string
}

// Registry maps task types to handlers.
type Registry struct {
	handlers map[state.TaskType]Handler
}

// NewRegistry registers handlers. A later handler replaces an earlier one of
// the same type.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[state.TaskType]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

// DefaultRegistry registers the four built-in handlers bound to env.
func DefaultRegistry(env *Env) *Registry {
	return NewRegistry(
		NewSearch(env),
		NewSmartSearch(env),
		NewCreate(env),
		NewFormat(env),
	)
}

func (r *Registry) Lookup(t state.TaskType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, t)
	}
	return h, nil
}

// Types lists registered task types in declaration order.
func (r *Registry) Types() []state.TaskType {
	var out []state.TaskType
	for _, t := range state.TaskTypes {
		if _, ok := r.handlers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func stateAs[P state.Stateful](st state.Stateful) (P, error) {
	p, ok := st.(P)
	if !ok {
		var zero P
		return zero, fmt.Errorf("unexpected state %T, want %T", st, zero)
	}
	return p, nil
}
