package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileStore keeps checkpoints as indented JSON files.
type FileStore struct{}

// NewFileStore returns a filesystem-backed store.
func NewFileStore() *FileStore { return &FileStore{} }

// Save writes v atomically: the data goes to a temp file that is renamed into
// place, so a crash never leaves a truncated checkpoint.
func (s *FileStore) Save(_ context.Context, path string, v any) error {
	if path == "" {
		return errors.New("checkpoint path is empty")
	}
	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	return unmarshal(path, data, v)
}

func (s *FileStore) Remove(_ context.Context, dir string) error {
	if dir == "" || dir == "." || dir == string(filepath.Separator) {
		return fmt.Errorf("refusing to remove %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove run dir: %w", err)
	}
	return nil
}

func (s *FileStore) Find(_ context.Context, root string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*", RunFile))
	if err != nil {
		return nil, fmt.Errorf("scan recovery root: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (s *FileStore) EnsureDir(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	return nil
}
