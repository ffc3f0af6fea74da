// Package metrics exposes Prometheus counters and histograms for a report
// run. Metrics implements the observer hooks of the workflow, planner and llm
// packages and the executor callbacks.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/executor"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/tools/web_search"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

const namespace = "reporter"

// Metrics holds the collectors of one registry.
type Metrics struct {
	TaskRuns      *prometheus.CounterVec
	TaskDuration  *prometheus.HistogramVec
	StepDuration  *prometheus.HistogramVec
	GateVerdicts  *prometheus.CounterVec
	PlanOutcomes  *prometheus.CounterVec
	LLMCalls      *prometheus.CounterVec
	LLMDuration   *prometheus.HistogramVec
	SearchCalls   *prometheus.CounterVec
	SearchResults prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TaskRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Tasks executed, by type and outcome.",
		}, []string{"type", "outcome"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of successful tasks.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"type"}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of generation steps, by field and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"field", "outcome"}),
		GateVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_verdicts_total",
			Help:      "Hallucination gate verdicts, by field.",
		}, []string{"field", "verdict"}),
		PlanOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_outcomes_total",
			Help:      "Candidate plans, by outcome.",
		}, []string{"outcome"}),
		LLMCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model calls, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		LLMDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Model call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		SearchCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_calls_total",
			Help:      "Web search calls, by outcome.",
		}, []string{"outcome"}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Results returned per web search call.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveStep(field string, elapsed time.Duration, err error) {
	m.StepDuration.WithLabelValues(field, outcome(err)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveVerdict(field, verdict string) {
	m.GateVerdicts.WithLabelValues(field, verdict).Inc()
}

func (m *Metrics) ObservePlan(result string) {
	m.PlanOutcomes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLLMCall(kind string, elapsed time.Duration, err error) {
	m.LLMCalls.WithLabelValues(kind, outcome(err)).Inc()
	m.LLMDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Executor returns the executor callbacks recording task runs.
func (m *Metrics) Executor() executor.Metrics {
	return executor.Metrics{
		Duration: func(_ context.Context, task state.Task, d time.Duration) {
			m.TaskRuns.WithLabelValues(string(task.Type), "ok").Inc()
			m.TaskDuration.WithLabelValues(string(task.Type)).Observe(d.Seconds())
		},
		Failure: func(_ context.Context, task state.Task, _ error) {
			m.TaskRuns.WithLabelValues(string(task.Type), "error").Inc()
		},
	}
}

// Searcher wraps next so every Discover call is counted.
func (m *Metrics) Searcher(next web_search.WebSearcher) web_search.WebSearcher {
	return &searcher{next: next, m: m}
}

type searcher struct {
	next web_search.WebSearcher
	m    *Metrics
}

func (s *searcher) Discover(ctx context.Context, q string, opts models.Options) ([]models.Result, error) {
	res, err := s.next.Discover(ctx, q, opts)
	s.m.SearchCalls.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		s.m.SearchResults.Observe(float64(len(res)))
	}
	return res, err
}

// Serve exposes gatherer on addr under /metrics, plus /healthz, until ctx is
// done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	e := NewServer(gatherer)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewServer returns the echo instance behind Serve.
func NewServer(gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return e
}
