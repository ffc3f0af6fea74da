// Package checkpoint persists run and sub-workflow state so an interrupted run
// can resume. Checkpoints are addressed by path: a run lives in
// <root>/<title>/task.json and each task in <root>/<title>/<type>_<index>.json.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

// RunFile is the name of the run-level checkpoint inside a run directory.
const RunFile = "task.json"

// ErrNotFound is returned by Load when no checkpoint exists at a path.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists JSON snapshots of state records.
type Store interface {
	// Save overwrites the checkpoint at path with the JSON encoding of v.
	Save(ctx context.Context, path string, v any) error
	// Load decodes the checkpoint at path into v.
	Load(ctx context.Context, path string, v any) error
	// Remove deletes a run directory and every checkpoint in it.
	Remove(ctx context.Context, dir string) error
	// Find lists run checkpoints (<root>/*/task.json).
	Find(ctx context.Context, root string) ([]string, error)
	// EnsureDir prepares a run directory. It is idempotent.
	EnsureDir(ctx context.Context, dir string) error
}

// RunDir returns the directory of the run titled title.
func RunDir(root, title string) string {
	return filepath.Join(root, title)
}

// RunPath returns the run checkpoint inside dir.
func RunPath(dir string) string {
	return filepath.Join(dir, RunFile)
}

// TaskPath returns the checkpoint of task index of kind typ inside dir.
func TaskPath(dir, typ string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.json", typ, index))
}

// IsRunPath reports whether path names a run checkpoint.
func IsRunPath(path string) bool {
	return path != "" && filepath.Base(path) == RunFile
}

// Noop discards every write. It backs dry runs and tests.
type Noop struct{}

func (Noop) Save(context.Context, string, any) error        { return nil }
func (Noop) Load(context.Context, string, any) error        { return ErrNotFound }
func (Noop) Remove(context.Context, string) error           { return nil }
func (Noop) Find(context.Context, string) ([]string, error) { return nil, nil }
func (Noop) EnsureDir(context.Context, string) error        { return nil }

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}
	return data, nil
}

func unmarshal(path string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return nil
}
