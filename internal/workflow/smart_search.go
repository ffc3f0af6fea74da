package workflow

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// SmartSearch asks the model which facts are missing from its background,
// then runs a nested search for them.
type SmartSearch struct {
	env     *Env
	queries Step[*state.SmartSearchState]
	search  *Search
}

func NewSmartSearch(env *Env) *SmartSearch {
	return &SmartSearch{
		env:     env,
		queries: NewStep(env, "smart_search_queries", ModeStructured, state.SmartSearchFields),
		search:  NewSearch(env),
	}
}

func (h *SmartSearch) Type() state.TaskType { return state.TaskSmartSearch }

func (h *SmartSearch) NewState(_ state.Task, background string) state.Stateful {
	return &state.SmartSearchState{Background: background}
}

func (h *SmartSearch) Summary(st state.Stateful) string {
	if s, ok := st.(*state.SmartSearchState); ok {
		return s.SmartSearchSummary
	}
	return ""
}

func (h *SmartSearch) Run(ctx context.Context, st state.Stateful) error {
	s, err := stateAs[*state.SmartSearchState](st)
	if err != nil {
		return err
	}
	if err := h.queries.Run(ctx, s); err != nil {
		return err
	}
	if len(s.SmartSearchQueries) == 0 {
		return fail(ctx, h.env.store(), h.env.logger(), s, "smart_search_queries", errors.New("no queries generated"))
	}

	nested := &state.SearchState{
		Queries: s.SmartSearchQueries,
		Control: state.Control{
			MaxRetry:     s.MaxRetry,
			RecoveryPath: nestedPath(s.RecoveryPath),
		},
	}
	if err := h.search.run(ctx, nested); err != nil {
		s.LoadRecovery = true
		if s.RecoveryPath != "" {
			if serr := h.env.store().Save(ctx, s.RecoveryPath, s); serr != nil {
				h.env.logger().Warn("checkpoint smart search", zap.Error(serr))
			}
		}
		return err
	}
	s.SmartSearchSummary = nested.SearchSummary
	return nil
}

// nestedPath derives the nested search checkpoint from the parent's:
// smart_search_3.json becomes smart_search_3_search.json.
func nestedPath(parent string) string {
	if parent == "" {
		return ""
	}
	return strings.TrimSuffix(parent, ".json") + "_search.json"
}
