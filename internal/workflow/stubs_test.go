package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/llm"
	"github.com/mohammad-safakhou/reporter/internal/prompts"
	fetchmodels "github.com/mohammad-safakhou/reporter/tools/web_fetch/models"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

func testPrompts() *prompts.Repository {
	return prompts.New(map[string]prompts.Prompt{
		"SEARCH_SUMMARY_PROMPT":        {Text: "summarize {search_results}", Keywords: []string{"search_results"}},
		"SEARCH_SUMMARY_HALLUCINATION": {Text: "grade summary"},
		"CREATE_OUTPUT_PROMPT":         {Text: "create {query} from {background}", Keywords: []string{"query", "background"}},
		"CREATE_OUTPUT_HALLUCINATION":  {Text: "grade create"},
		"SMART_SEARCH_QUERIES_PROMPT":  {Text: "queries for {background}", Keywords: []string{"background"}},
		"PRE_REPORT_PROMPT":            {Text: "draft {background}", Keywords: []string{"background"}},
		"REPORT_PROMPT":                {Text: "final {pre_report}", Keywords: []string{"pre_report"}},
	})
}

// stubGenerator renders the template with its vars and answers through fn.
type stubGenerator struct {
	mu    sync.Mutex
	calls []string
	fn    func(prompt string) (string, error)
}

func (g *stubGenerator) Text(_ context.Context, template string, vars map[string]string) (string, error) {
	prompt, err := prompts.Render(template, vars)
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	g.calls = append(g.calls, prompt)
	g.mu.Unlock()
	return g.fn(prompt)
}

func (g *stubGenerator) Structured(ctx context.Context, template string, vars map[string]string) (map[string]json.RawMessage, error) {
	out, err := g.Text(ctx, template, vars)
	if err != nil {
		return nil, err
	}
	return llm.ParseObject(out)
}

type stubGrader struct {
	answers []string
	err     error
	calls   int
	humans  []string
}

func (g *stubGrader) Grade(_ context.Context, _, human string) (string, error) {
	g.calls++
	g.humans = append(g.humans, human)
	if g.err != nil {
		return "", g.err
	}
	if len(g.answers) == 0 {
		return "no", nil
	}
	a := g.answers[0]
	if len(g.answers) > 1 {
		g.answers = g.answers[1:]
	}
	return a, nil
}

// memStore keeps the last JSON saved per path.
type memStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	saves []string
}

func newMemStore() *memStore { return &memStore{saved: map[string][]byte{}} }

func (m *memStore) Save(_ context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[path] = data
	m.saves = append(m.saves, path)
	return nil
}

func (m *memStore) Load(_ context.Context, path string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.saved[path]
	if !ok {
		return checkpoint.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (m *memStore) Remove(context.Context, string) error          { return nil }
func (m *memStore) Find(context.Context, string) ([]string, error) { return nil, nil }
func (m *memStore) EnsureDir(context.Context, string) error        { return nil }

type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]models.Result
	fail    map[string]error
	seen    []string
}

func (s *stubSearcher) Discover(_ context.Context, q string, _ models.Options) ([]models.Result, error) {
	s.mu.Lock()
	s.seen = append(s.seen, q)
	s.mu.Unlock()
	if err := s.fail[q]; err != nil {
		return nil, err
	}
	res, ok := s.results[q]
	if !ok {
		return nil, fmt.Errorf("unexpected query %q", q)
	}
	return res, nil
}

func prefixed(prompt, prefix string) bool { return strings.HasPrefix(prompt, prefix) }

type stubFetcher struct {
	pages map[string]fetchmodels.Result
}

func (f stubFetcher) Exec(_ context.Context, url string) (fetchmodels.Result, error) {
	page, ok := f.pages[url]
	if !ok {
		return fetchmodels.Result{}, fmt.Errorf("no page for %s", url)
	}
	return page, nil
}
