package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

type fixedSearcher struct {
	res []models.Result
	err error
}

func (s fixedSearcher) Discover(context.Context, string, models.Options) ([]models.Result, error) {
	return s.res, s.err
}

func TestObservers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveVerdict("create_output", "yes")
	m.ObserveVerdict("create_output", "yes")
	m.ObserveVerdict("create_output", "no")
	m.ObservePlan("rejected")
	m.ObserveLLMCall("text", time.Second, nil)
	m.ObserveLLMCall("grade", time.Second, errors.New("boom"))
	m.ObserveStep("title", time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GateVerdicts.WithLabelValues("create_output", "yes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateVerdicts.WithLabelValues("create_output", "no")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlanOutcomes.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMCalls.WithLabelValues("grade", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDuration))
}

func TestExecutorCallbacks(t *testing.T) {
	m := New(prometheus.NewRegistry())
	cb := m.Executor()
	task := state.Task{Type: state.TaskSearch}

	cb.Duration(context.Background(), task, 2*time.Second)
	cb.Failure(context.Background(), task, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRuns.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRuns.WithLabelValues("search", "error")))
}

func TestSearcherCountsCalls(t *testing.T) {
	m := New(prometheus.NewRegistry())

	ok := m.Searcher(fixedSearcher{res: []models.Result{{URL: "a"}, {URL: "b"}}})
	res, err := ok.Discover(context.Background(), "q", models.Options{})
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = m.Searcher(fixedSearcher{err: errors.New("down")}).Discover(context.Background(), "q", models.Options{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCalls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCalls.WithLabelValues("error")))
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestServerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObservePlan("approved")
	e := NewServer(reg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reporter_plan_outcomes_total{outcome="approved"} 1`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
