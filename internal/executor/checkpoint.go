package executor

import (
	"context"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// CheckpointManager persists executor progress to support resume semantics.
type CheckpointManager interface {
	SaveTaskStart(ctx context.Context, run *state.RunState, index int) error
	SaveTaskFailure(ctx context.Context, run *state.RunState, index int, err error) error
	// Finish is called once every task has produced its output.
	Finish(ctx context.Context, run *state.RunState) error
}

// NoopCheckpointManager is a default implementation that records nothing.
type NoopCheckpointManager struct{}

// NewNoopCheckpointManager returns a checkpoint manager that does nothing.
func NewNoopCheckpointManager() *NoopCheckpointManager { return &NoopCheckpointManager{} }

func (NoopCheckpointManager) SaveTaskStart(context.Context, *state.RunState, int) error {
	return nil
}
func (NoopCheckpointManager) SaveTaskFailure(context.Context, *state.RunState, int, error) error {
	return nil
}
func (NoopCheckpointManager) Finish(context.Context, *state.RunState) error { return nil }
