package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/state"
)

// Checkpoint is a run checkpoint found under the recovery root.
type Checkpoint struct {
	Path string
	Run  *state.RunState
}

// Completed reports how many tasks of the checkpointed plan have an output.
func (c Checkpoint) Completed() int { return len(c.Run.TaskOutput) }

// ListCheckpoints loads every run checkpoint under root. Unreadable files are
// returned in skipped instead of failing the listing.
func ListCheckpoints(ctx context.Context, store checkpoint.Store, root string) (found []Checkpoint, skipped map[string]error, err error) {
	paths, err := store.Find(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("find checkpoints: %w", err)
	}
	for _, p := range paths {
		run := &state.RunState{}
		if lerr := store.Load(ctx, p, run); lerr != nil {
			if skipped == nil {
				skipped = make(map[string]error)
			}
			skipped[p] = lerr
			continue
		}
		found = append(found, Checkpoint{Path: p, Run: run})
	}
	return found, skipped, nil
}

// FindRecovery returns the first checkpoint under root recorded for query, or
// nil when there is none.
func FindRecovery(ctx context.Context, store checkpoint.Store, root, query string) (*Checkpoint, error) {
	found, _, err := ListCheckpoints(ctx, store, root)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	for _, c := range found {
		if strings.TrimSpace(c.Run.Query) == query {
			return &c, nil
		}
	}
	return nil, nil
}

// Resume prepares a checkpointed run for Run.
func Resume(c *Checkpoint) *state.RunState {
	run := c.Run
	run.LoadRecovery = true
	run.RecoveryPath = c.Path
	return run
}

// Discard deletes the run directory of c.
func Discard(ctx context.Context, store checkpoint.Store, c *Checkpoint) error {
	if !checkpoint.IsRunPath(c.Path) {
		return fmt.Errorf("not a run checkpoint: %s", c.Path)
	}
	return store.Remove(ctx, filepath.Dir(c.Path))
}
