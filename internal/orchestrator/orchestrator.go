// Package orchestrator drives a run through its phases: title, recovery
// directory, plan approval and task execution. It resumes a checkpointed run
// at the first phase whose work is missing.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/internal/workflow"
)

// UntitledDir holds the checkpoint of a run that has no title yet.
const UntitledDir = "_untitled"

// Phase names a state of the run state machine.
type Phase string

const (
	PhaseCheckRecovery     Phase = "check_recovery"
	PhaseGenerateTitle     Phase = "generate_title"
	PhaseSetupRecoveryPath Phase = "setup_recovery_path"
	PhaseGenerateTasks     Phase = "generate_tasks"
	PhaseExecuteTasks      Phase = "execute_tasks"
	PhaseDone              Phase = "done"
)

// Planner produces an approved plan in run.Tasks.
type Planner interface {
	Plan(ctx context.Context, run *state.RunState) error
}

// Executor runs the approved plan.
type Executor interface {
	Execute(ctx context.Context, run *state.RunState) error
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator owns the RunState for the duration of Run.
type Orchestrator struct {
	title    workflow.Step[*state.RunState]
	planner  Planner
	executor Executor
	store    checkpoint.Store
	root     string
	logger   *zap.Logger
}

// New builds an orchestrator that keeps run checkpoints under root. The title
// step and the store come from env.
func New(env *workflow.Env, planner Planner, executor Executor, root string, opts ...Option) *Orchestrator {
	store := env.Store
	if store == nil {
		store = checkpoint.Noop{}
	}
	o := &Orchestrator{
		title:    workflow.NewStep(env, "title", workflow.ModeText, state.RunFields),
		planner:  planner,
		executor: executor,
		store:    store,
		root:     root,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewRun returns a fresh run for query whose checkpoint lives in the untitled
// directory until a title is generated.
func (o *Orchestrator) NewRun(query string, planAttempts int) *state.RunState {
	return state.NewRunState(query, planAttempts, checkpoint.RunPath(checkpoint.RunDir(o.root, UntitledDir)))
}

// Run advances run until every task has an output or a phase fails. Errors
// are returned as produced by the failing phase; the run was checkpointed
// before any of them.
func (o *Orchestrator) Run(ctx context.Context, run *state.RunState) (*state.RunState, error) {
	logger := o.logger.With(zap.String("run_id", uuid.NewString()))
	start := time.Now()

	phase := PhaseCheckRecovery
	for phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		logger.Debug("phase", zap.String("phase", string(phase)))
		next, err := o.step(ctx, phase, run)
		if err != nil {
			logger.Error("run stopped", zap.String("phase", string(phase)), zap.Error(err))
			return run, err
		}
		phase = next
	}
	logger.Info("run finished", zap.String("title", run.Title), zap.Int("tasks", len(run.Tasks)), zap.Duration("elapsed", time.Since(start)))
	return run, nil
}

func (o *Orchestrator) step(ctx context.Context, phase Phase, run *state.RunState) (Phase, error) {
	switch phase {
	case PhaseCheckRecovery:
		return o.checkRecovery(run), nil
	case PhaseGenerateTitle:
		if err := o.title.Run(ctx, run); err != nil {
			return phase, err
		}
		return PhaseSetupRecoveryPath, nil
	case PhaseSetupRecoveryPath:
		if err := o.setupRecoveryPath(ctx, run); err != nil {
			return phase, err
		}
		if run.HasTasks() {
			return PhaseExecuteTasks, nil
		}
		return PhaseGenerateTasks, nil
	case PhaseGenerateTasks:
		if err := o.planner.Plan(ctx, run); err != nil {
			return phase, err
		}
		return PhaseExecuteTasks, nil
	case PhaseExecuteTasks:
		if err := o.executor.Execute(ctx, run); err != nil {
			return phase, err
		}
		return PhaseDone, nil
	}
	return phase, fmt.Errorf("unknown phase %q", phase)
}

// checkRecovery picks the entry phase from the recovery flag and whether an
// approved plan exists.
func (o *Orchestrator) checkRecovery(run *state.RunState) Phase {
	switch {
	case run.LoadRecovery && run.HasTasks():
		return PhaseExecuteTasks
	case run.LoadRecovery && run.Title != "":
		return PhaseSetupRecoveryPath
	default:
		return PhaseGenerateTitle
	}
}

// setupRecoveryPath points run at <root>/<sanitized title>/task.json and drops
// the untitled checkpoint left by the title phase.
func (o *Orchestrator) setupRecoveryPath(ctx context.Context, run *state.RunState) error {
	dir := checkpoint.RunDir(o.root, state.SanitizeTitle(run.Title))
	if err := o.store.EnsureDir(ctx, dir); err != nil {
		return fmt.Errorf("create recovery dir: %w", err)
	}
	prev := run.RecoveryPath
	run.RecoveryPath = checkpoint.RunPath(dir)
	if prev != "" && prev != run.RecoveryPath && filepath.Base(filepath.Dir(prev)) == UntitledDir {
		if err := o.store.Remove(ctx, filepath.Dir(prev)); err != nil {
			o.logger.Warn("remove untitled checkpoint", zap.String("path", prev), zap.Error(err))
		}
	}
	return nil
}
