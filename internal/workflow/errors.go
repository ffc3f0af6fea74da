package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/checkpoint"
	"github.com/mohammad-safakhou/reporter/internal/state"
)

// FatalError reports a generation, search or grading failure. The state was
// checkpointed at Path with load_recovery set before the error was returned.
type FatalError struct {
	Field string
	Path  string
	Err   error
}

func (e *FatalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (checkpoint saved to %s)", e.Field, e.Err, e.Path)
}

func (e *FatalError) Unwrap() error { return e.Err }

// fail marks st for recovery, persists it and wraps err. A failed save is
// reported alongside the original error.
func fail(ctx context.Context, store checkpoint.Store, logger *zap.Logger, st state.Stateful, field string, err error) error {
	ctl := st.Ctl()
	ctl.LoadRecovery = true
	logger.Error("step failed", zap.String("field", field), zap.String("recovery_path", ctl.RecoveryPath), zap.Error(err))
	if ctl.RecoveryPath == "" {
		return &FatalError{Field: field, Err: err}
	}
	if serr := store.Save(ctx, ctl.RecoveryPath, st); serr != nil {
		return &FatalError{Field: field, Err: fmt.Errorf("%w; saving checkpoint also failed: %v", err, serr)}
	}
	return &FatalError{Field: field, Path: ctl.RecoveryPath, Err: err}
}
