// Package executor runs an approved plan task by task, feeding each task the
// outputs of its dependencies and checkpointing the run before every task.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/internal/workflow"
)

// DefaultGateAttempts is the hallucination gate budget given to each task.
const DefaultGateAttempts = 3

// TaskError reports the task that stopped a run. The run state was
// checkpointed with load_recovery set before it was returned.
type TaskError struct {
	Index int
	Type  state.TaskType
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Executor runs the tasks of a plan in order.
type Executor struct {
	registry     *workflow.Registry
	checkpoints  CheckpointManager
	metrics      Metrics
	logger       *zap.Logger
	gateAttempts int
}

// Metrics aggregates optional telemetry callbacks.
type Metrics struct {
	Duration func(context.Context, state.Task, time.Duration)
	Failure  func(context.Context, state.Task, error)
}

// Option configures executor behaviour.
type Option func(*Executor)

// WithCheckpointManager sets the checkpoint manager implementation.
func WithCheckpointManager(mgr CheckpointManager) Option {
	return func(ex *Executor) {
		ex.checkpoints = mgr
	}
}

// WithMetrics sets executor metrics callbacks.
func WithMetrics(m Metrics) Option {
	return func(ex *Executor) {
		ex.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(ex *Executor) {
		if l != nil {
			ex.logger = l
		}
	}
}

// WithGateAttempts sets the max_retry each sub-workflow starts with.
func WithGateAttempts(n int) Option {
	return func(ex *Executor) {
		ex.gateAttempts = n
	}
}

// New creates a new Executor instance.
func New(registry *workflow.Registry, opts ...Option) *Executor {
	ex := &Executor{
		registry:     registry,
		checkpoints:  NewNoopCheckpointManager(),
		logger:       zap.NewNop(),
		gateAttempts: DefaultGateAttempts,
	}
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}

// Execute runs every task of run that has no output yet. A resumed run
// therefore starts at the first task without an output. Failures are not
// retried here.
func (e *Executor) Execute(ctx context.Context, run *state.RunState) error {
	run.LoadRecovery = false
	for i := len(run.TaskOutput); i < len(run.Tasks); i++ {
		task := run.Tasks[i]
		h, err := e.registry.Lookup(task.Type)
		if err != nil {
			return e.fail(ctx, run, i, task, err)
		}

		st := h.NewState(task, Background(run, task))
		ctl := st.Ctl()
		ctl.LoadRecovery = false
		ctl.RecoveryPath = taskPath(run.RecoveryPath, task.Type, i)
		ctl.MaxRetry = e.gateAttempts

		if err := e.checkpoints.SaveTaskStart(ctx, run, i); err != nil {
			return err
		}
		e.logger.Info("task started", zap.Int("index", i), zap.String("type", string(task.Type)))

		start := time.Now()
		if err := h.Run(ctx, st); err != nil {
			return e.fail(ctx, run, i, task, err)
		}
		if e.metrics.Duration != nil {
			e.metrics.Duration(ctx, task, time.Since(start))
		}
		run.TaskOutput = append(run.TaskOutput, h.Summary(st))
		e.logger.Info("task finished", zap.Int("index", i), zap.String("type", string(task.Type)), zap.Duration("elapsed", time.Since(start)))
	}
	return e.checkpoints.Finish(ctx, run)
}

func (e *Executor) fail(ctx context.Context, run *state.RunState, index int, task state.Task, err error) error {
	e.logger.Error("task failed", zap.Int("index", index), zap.String("type", string(task.Type)), zap.Error(err))
	if e.metrics.Failure != nil {
		e.metrics.Failure(ctx, task, err)
	}
	run.LoadRecovery = true
	if serr := e.checkpoints.SaveTaskFailure(ctx, run, index, err); serr != nil {
		e.logger.Error("checkpoint after task failure", zap.Error(serr))
	}
	return &TaskError{Index: index, Type: task.Type, Err: err}
}

// Background joins the outputs of task's dependencies with blank lines.
func Background(run *state.RunState, task state.Task) string {
	parts := make([]string, 0, len(task.Dependencies))
	for _, d := range task.Dependencies {
		if d >= 0 && d < len(run.TaskOutput) {
			parts = append(parts, run.TaskOutput[d])
		}
	}
	return strings.Join(parts, "\n\n")
}

func taskPath(runPath string, typ state.TaskType, index int) string {
	if runPath == "" {
		return ""
	}
	return checkpoint.TaskPath(filepath.Dir(runPath), string(typ), index)
}
