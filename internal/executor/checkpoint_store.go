package executor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/state"
)

// StoreCheckpointManager writes the run state to its recovery path through a
// checkpoint.Store.
type StoreCheckpointManager struct {
	store     checkpoint.Store
	saveFinal bool
}

// NewStoreCheckpointManager constructs a CheckpointManager backed by st. With
// saveFinal the finished run is kept on disk; otherwise its directory is
// removed.
func NewStoreCheckpointManager(st checkpoint.Store, saveFinal bool) *StoreCheckpointManager {
	return &StoreCheckpointManager{store: st, saveFinal: saveFinal}
}

func (m *StoreCheckpointManager) SaveTaskStart(ctx context.Context, run *state.RunState, _ int) error {
	return m.save(ctx, run)
}

func (m *StoreCheckpointManager) SaveTaskFailure(ctx context.Context, run *state.RunState, _ int, _ error) error {
	return m.save(ctx, run)
}

func (m *StoreCheckpointManager) Finish(ctx context.Context, run *state.RunState) error {
	if m.store == nil || run.RecoveryPath == "" {
		return nil
	}
	if m.saveFinal {
		return m.save(ctx, run)
	}
	// Only ever remove a directory that holds a run checkpoint.
	if !checkpoint.IsRunPath(run.RecoveryPath) {
		return fmt.Errorf("refusing to remove %q: not a run checkpoint", run.RecoveryPath)
	}
	return m.store.Remove(ctx, filepath.Dir(run.RecoveryPath))
}

func (m *StoreCheckpointManager) save(ctx context.Context, run *state.RunState) error {
	if m.store == nil || run.RecoveryPath == "" {
		return nil
	}
	if err := m.store.Save(ctx, run.RecoveryPath, run); err != nil {
		return fmt.Errorf("checkpoint run: %w", err)
	}
	return nil
}

var _ CheckpointManager = (*StoreCheckpointManager)(nil)
