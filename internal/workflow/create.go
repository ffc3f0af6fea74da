package workflow

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// Create writes one section of the report from its background, behind a
// hallucination gate.
type Create struct {
	output Step[*state.CreateState]
	gate   Gate[*state.CreateState]
}

func NewCreate(env *Env) *Create {
	return &Create{
		output: NewStep(env, "create_output", ModeText, state.CreateFields),
		gate: NewGate(env, "create_output", state.CreateFields, func(s *state.CreateState) string {
			return fmt.Sprintf("Query:\n%s\n\n\n\nAI generated text:\n%s\n\n\n\nBackground:\n%s", s.Query, s.CreateOutput, s.Background)
		}),
	}
}

func (h *Create) Type() state.TaskType { return state.TaskCreate }

func (h *Create) NewState(task state.Task, background string) state.Stateful {
	return &state.CreateState{Query: task.Query, Background: background}
}

func (h *Create) Run(ctx context.Context, st state.Stateful) error {
	s, err := stateAs[*state.CreateState](st)
	if err != nil {
		return err
	}
	return generateChecked(ctx, s, h.output, h.gate)
}

func (h *Create) Summary(st state.Stateful) string {
	if s, ok := st.(*state.CreateState); ok {
		return s.CreateOutput
	}
	return ""
}
