package workflow

import (
	"context"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// Format merges its background into a draft and then into the final report.
// Neither step is graded.
type Format struct {
	preReport Step[*state.FormatState]
	report    Step[*state.FormatState]
}

func NewFormat(env *Env) *Format {
	return &Format{
		preReport: NewStep(env, "pre_report", ModeText, state.FormatFields),
		report:    NewStep(env, "report", ModeText, state.FormatFields),
	}
}

func (h *Format) Type() state.TaskType { return state.TaskFormat }

func (h *Format) NewState(_ state.Task, background string) state.Stateful {
	return &state.FormatState{Background: background}
}

func (h *Format) Run(ctx context.Context, st state.Stateful) error {
	s, err := stateAs[*state.FormatState](st)
	if err != nil {
		return err
	}
	if err := h.preReport.Run(ctx, s); err != nil {
		return err
	}
	return h.report.Run(ctx, s)
}

func (h *Format) Summary(st state.Stateful) string {
	if s, ok := st.(*state.FormatState); ok {
		return s.Report
	}
	return ""
}
