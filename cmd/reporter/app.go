package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/config"
	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/console"
	"github.com/mohammad-safakhou/reporter/internal/executor"
	"github.com/mohammad-safakhou/reporter/internal/llm"
	"github.com/mohammad-safakhou/reporter/internal/metrics"
	"github.com/mohammad-safakhou/reporter/internal/orchestrator"
	"github.com/mohammad-safakhou/reporter/internal/planner"
	"github.com/mohammad-safakhou/reporter/internal/prompts"
	"github.com/mohammad-safakhou/reporter/internal/report"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/internal/workflow"
	"github.com/mohammad-safakhou/reporter/provider"
	"github.com/mohammad-safakhou/reporter/tools/web_fetch"
	"github.com/mohammad-safakhou/reporter/tools/web_search"
	"github.com/mohammad-safakhou/reporter/tools/web_search/models"
)

const searchHTTPTimeout = 30 * time.Second

// app holds the components of one run, built from the config.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	ui      *console.Console
	store   checkpoint.Store
	orch    *orchestrator.Orchestrator
	writer  *report.Writer
	closers []func() error
}

// openStore returns the checkpoint backend selected in cfg and a function
// releasing it.
func openStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, func() error, error) {
	switch cfg.Checkpoint.Backend {
	case "redis":
		r := cfg.Checkpoint.Redis
		client, err := checkpoint.Conn(ctx, r.Addr, r.Password, r.DB, r.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return checkpoint.NewRedisStore(client, r.Prefix, r.TTL), client.Close, nil
	default:
		return checkpoint.NewFileStore(), func() error { return nil }, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, ui *console.Console) (*app, error) {
	a := &app{cfg: cfg, logger: logger, ui: ui}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, reg, logger.Named("metrics")); err != nil {
				logger.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	completer, err := provider.NewProvider(cfg.LLM, logger.Named("provider"))
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(completer, llm.WithLogger(logger.Named("llm")), llm.WithObserver(m))

	repo, err := prompts.Load(cfg.Paths.PromptFile)
	if err != nil {
		return nil, err
	}

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey, &http.Client{Timeout: searchHTTPTimeout})
	if err != nil {
		return nil, fmt.Errorf("search provider %q: %w", cfg.Search.Provider, err)
	}
	var fetcher web_fetch.WebFetcher
	if cfg.Search.FetchPages {
		fetcher, err = web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Search.Fetcher), cfg.Search.FetchTimeout, cfg.Search.MaxChars, nil)
		if err != nil {
			return nil, fmt.Errorf("page fetcher %q: %w", cfg.Search.Fetcher, err)
		}
	}

	env := &workflow.Env{
		Prompts:   repo,
		Generator: client,
		Grader:    client,
		Store:     store,
		Searcher:  m.Searcher(web_search.Retrying{Next: searcher, MaxRetries: uint64(cfg.Search.MaxRetries)}),
		Fetcher:   fetcher,
		SearchOptions: models.Options{
			MaxResults: cfg.Search.MaxResults,
			Topic:      models.Topic(cfg.Search.Topic),
			Days:       cfg.Search.Days,
			Depth:      cfg.Search.Depth,
		},
		MaxInvalidVerdicts: cfg.Pipeline.MaxInvalidVerdicts,
		Logger:             logger.Named("workflow"),
		Observer:           m,
	}

	plans := planner.NewValidator(env, ui,
		planner.WithPresenter(ui),
		planner.WithObserver(m),
		planner.WithLogger(logger.Named("planner")),
	)
	exec := executor.New(workflow.DefaultRegistry(env),
		executor.WithCheckpointManager(executor.NewStoreCheckpointManager(store, cfg.Pipeline.SaveFinalState)),
		executor.WithMetrics(m.Executor()),
		executor.WithLogger(logger.Named("executor")),
		executor.WithGateAttempts(cfg.Pipeline.GateAttempts),
	)
	a.orch = orchestrator.New(env, plans, exec, cfg.Paths.RecoveryDir, orchestrator.WithLogger(logger.Named("orchestrator")))
	a.writer = report.NewWriter(cfg.Paths.OutputDir, cfg.Report.HTML)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
}

// recoveryChoice is how an existing checkpoint for the query is handled.
type recoveryChoice int

const (
	askUser recoveryChoice = iota
	alwaysResume
	alwaysFresh
)

// prepareRun returns the checkpointed run for query when one exists and the
// operator wants it, and a fresh run otherwise. A declined checkpoint is
// deleted.
func (a *app) prepareRun(ctx context.Context, query string, choice recoveryChoice) (*state.RunState, error) {
	found, err := orchestrator.FindRecovery(ctx, a.store, a.cfg.Paths.RecoveryDir, query)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return a.orch.NewRun(query, a.cfg.Pipeline.PlanAttempts), nil
	}

	resume := choice == alwaysResume
	if choice == askUser {
		question := fmt.Sprintf("Found a checkpoint for this query at %s (%d of %d tasks done). Resume it?",
			found.Path, found.Completed(), len(found.Run.Tasks))
		resume, err = a.ui.Confirm(ctx, question)
		if err != nil {
			return nil, err
		}
	}
	if resume {
		a.logger.Info("resuming from checkpoint", zap.String("path", found.Path))
		return orchestrator.Resume(found), nil
	}
	if err := orchestrator.Discard(ctx, a.store, found); err != nil {
		return nil, fmt.Errorf("discard checkpoint: %w", err)
	}
	return a.orch.NewRun(query, a.cfg.Pipeline.PlanAttempts), nil
}
