// Package planner turns a query into an approved task plan: it asks the model
// for a candidate list, validates its shape and puts it in front of a human.
package planner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/console"
	"github.com/mohammad-safakhou/reporter/internal/state"
	"github.com/mohammad-safakhou/reporter/internal/workflow"
)

// ErrAttemptsExhausted is returned once the plan attempts are used up.
var ErrAttemptsExhausted = errors.New("plan attempts exhausted")

// Plan outcomes reported to the Observer.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
)

// Presenter shows a candidate plan before the approval question.
type Presenter interface {
	ShowPlan(title, plan string)
}

// Observer counts plan outcomes.
type Observer interface {
	ObservePlan(outcome string)
}

type Option func(*Validator)

func WithPresenter(p Presenter) Option { return func(v *Validator) { v.presenter = p } }

func WithObserver(o Observer) Option { return func(v *Validator) { v.observer = o } }

func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// Validator runs the plan loop: generate, check, approve.
type Validator struct {
	env       *workflow.Env
	step      workflow.Step[*state.RunState]
	approver  console.Approver
	presenter Presenter
	observer  Observer
	logger    *zap.Logger
}

func NewValidator(env *workflow.Env, approver console.Approver, opts ...Option) *Validator {
	step := workflow.NewStep(env, "tasks", workflow.ModeStructured, state.RunFields)
	// A completion without a plan is judged by ParseTasks like any other
	// malformed candidate.
	step.Optional = true
	v := &Validator{
		env:      env,
		step:     step,
		approver: approver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Plan loops until a candidate plan is well formed and approved, and then
// assigns it to run.Tasks. Every malformed or rejected candidate spends one
// of run.MaxRetry; going below zero checkpoints the run and returns
// ErrAttemptsExhausted.
func (v *Validator) Plan(ctx context.Context, run *state.RunState) error {
	for {
		if err := v.step.Run(ctx, run); err != nil {
			return err
		}

		tasks, err := ParseTasks(run.Draft())
		if err != nil {
			v.logger.Warn("malformed plan", zap.Int("attempts_left", run.MaxRetry), zap.Error(err))
			v.observe(OutcomeInvalid)
		} else {
			ok, err := v.approve(ctx, run, tasks)
			if err != nil {
				run.ClearDraft()
				return v.suspend(ctx, run, fmt.Errorf("plan approval: %w", err))
			}
			if ok {
				run.Tasks = tasks
				run.ClearDraft()
				v.observe(OutcomeApproved)
				v.logger.Info("plan approved", zap.Int("tasks", len(tasks)))
				return nil
			}
			v.logger.Info("plan rejected", zap.Int("attempts_left", run.MaxRetry))
			v.observe(OutcomeRejected)
		}

		run.ClearDraft()
		run.MaxRetry--
		if run.MaxRetry < 0 {
			return v.suspend(ctx, run, ErrAttemptsExhausted)
		}
	}
}

func (v *Validator) approve(ctx context.Context, run *state.RunState, tasks []state.Task) (bool, error) {
	if v.presenter != nil {
		v.presenter.ShowPlan(run.Title, v.explain(ctx, run, tasks))
	}
	return v.approver.Confirm(ctx, "Do you approve this plan?")
}

// explain renders the candidate through the validation prompt when one is
// configured, falling back to Describe.
func (v *Validator) explain(ctx context.Context, run *state.RunState, tasks []state.Task) string {
	if v.env.Prompts == nil {
		return Describe(tasks)
	}
	p, ok := v.env.Prompts.Validation("tasks")
	if !ok {
		return Describe(tasks)
	}
	vars := make(map[string]string, len(p.Keywords))
	for _, kw := range p.Keywords {
		f, err := state.RunFields.Lookup(kw)
		if err != nil {
			v.logger.Warn("plan explanation", zap.Error(err))
			return Describe(tasks)
		}
		vars[kw] = f.Get(run)
	}
	text, err := v.env.Generator.Text(ctx, p.Text, vars)
	if err != nil {
		v.logger.Warn("plan explanation", zap.Error(err))
		return Describe(tasks)
	}
	return text + "\n\n" + Describe(tasks)
}

// suspend marks run for recovery, saves it and returns cause annotated with
// the checkpoint location.
func (v *Validator) suspend(ctx context.Context, run *state.RunState, cause error) error {
	run.LoadRecovery = true
	if run.RecoveryPath == "" {
		return cause
	}
	store := v.env.Store
	if store == nil {
		store = checkpoint.Noop{}
	}
	if err := store.Save(ctx, run.RecoveryPath, run); err != nil {
		return fmt.Errorf("%w; saving checkpoint failed: %v", cause, err)
	}
	return fmt.Errorf("%w: checkpoint saved to %s", cause, run.RecoveryPath)
}

func (v *Validator) observe(outcome string) {
	if v.observer != nil {
		v.observer.ObservePlan(outcome)
	}
}
