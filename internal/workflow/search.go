package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

// Search runs every query of a task in parallel, joins the hits and
// summarizes them behind a hallucination gate.
type Search struct {
	env     *Env
	summary Step[*state.SearchState]
	gate    Gate[*state.SearchState]
}

func NewSearch(env *Env) *Search {
	return &Search{
		env:     env,
		summary: NewStep(env, "search_summary", ModeText, state.SearchFields),
		gate: NewGate(env, "search_summary", state.SearchFields, func(s *state.SearchState) string {
			return fmt.Sprintf("Sources:\n%s\n\n\n\nSummary:\n%s", s.SearchResults, s.SearchSummary)
		}),
	}
}

func (h *Search) Type() state.TaskType { return state.TaskSearch }

func (h *Search) NewState(task state.Task, _ string) state.Stateful {
	return &state.SearchState{Queries: append([]string(nil), task.Queries...)}
}

func (h *Search) Run(ctx context.Context, st state.Stateful) error {
	s, err := stateAs[*state.SearchState](st)
	if err != nil {
		return err
	}
	return h.run(ctx, s)
}

func (h *Search) Summary(st state.Stateful) string {
	if s, ok := st.(*state.SearchState); ok {
		return s.SearchSummary
	}
	return ""
}

func (h *Search) run(ctx context.Context, s *state.SearchState) error {
	logger := h.env.logger()
	if !s.LoadRecovery || strings.TrimSpace(s.SearchResults) == "" {
		s.LoadRecovery = false
		if len(s.Queries) == 0 {
			return fail(ctx, h.env.store(), logger, s, "search_results", errors.New("search task has no queries"))
		}
		start := time.Now()
		results, err := h.collect(ctx, s.Queries)
		h.env.observer().ObserveStep("search_results", time.Since(start), err)
		if err != nil {
			return fail(ctx, h.env.store(), logger, s, "search_results", err)
		}
		s.SearchResults = results
		if results == "" {
			logger.Warn("search returned no usable results", zap.Strings("queries", s.Queries))
		}
		if s.RecoveryPath != "" {
			if err := h.env.store().Save(ctx, s.RecoveryPath, s); err != nil {
				logger.Warn("checkpoint search results", zap.Error(err))
			}
		}
	}
	return generateChecked(ctx, s, h.summary, h.gate)
}

// collect fans the queries out and waits for all of them. The first failure
// cancels the rest.
func (h *Search) collect(ctx context.Context, queries []string) (string, error) {
	g, gctx := errgroup.WithContext(ctx)
	hits := make([][]models.Result, len(queries))
	for i, q := range queries {
		g.Go(func() error {
			res, err := h.env.Searcher.Discover(gctx, q, h.env.SearchOptions)
			if err != nil {
				return fmt.Errorf("search %q: %w", q, err)
			}
			hits[i] = h.enrich(gctx, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return JoinResults(hits), nil
}

func (h *Search) enrich(ctx context.Context, res []models.Result) []models.Result {
	if h.env.Fetcher == nil {
		return res
	}
	for i := range res {
		if res[i].Content != "" || res[i].URL == "" {
			continue
		}
		page, err := h.env.Fetcher.Exec(ctx, res[i].URL)
		text := page.Markdown
		if strings.TrimSpace(text) == "" {
			text = page.Text
		}
		if err != nil || strings.TrimSpace(text) == "" {
			h.env.logger().Debug("page fetch skipped", zap.String("url", res[i].URL), zap.Error(err))
			continue
		}
		res[i].Content = text
	}
	return res
}

// JoinResults flattens per-query hits in query order, drops hits whose text
// was already seen and separates entries with a blank line.
func JoinResults(hits [][]models.Result) string {
	seen := make(map[string]struct{})
	var parts []string
	for _, group := range hits {
		for _, r := range group {
			text := strings.TrimSpace(r.Text())
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			if r.URL != "" {
				text += "\nSource: " + r.URL
			}
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
