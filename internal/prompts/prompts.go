// Package prompts loads the prompt table used by every generation step. Each
// entry is keyed by an upper-case name derived from the state field it serves:
// <FIELD>_PROMPT, <FIELD>_VALIDATION_PROMPT and <FIELD>_HALLUCINATION.
package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default_prompts.yaml
var defaultPrompts []byte

// ErrNotFound is returned when a prompt name is missing from the table.
var ErrNotFound = errors.New("prompt not found")

// Prompt is one template plus the state fields it interpolates.
type Prompt struct {
	Text     string   `json:"text" yaml:"text" toml:"text"`
	Keywords []string `json:"keywords" yaml:"keywords" toml:"keywords"`
}

// Repository is a read-only prompt table.
type Repository struct {
	entries map[string]Prompt
}

// New wraps an in-memory table. Keys are normalized to upper case.
func New(entries map[string]Prompt) *Repository {
	r := &Repository{entries: make(map[string]Prompt, len(entries))}
	for k, v := range entries {
		r.entries[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return r
}

// Default returns the prompt table compiled into the binary.
func Default() (*Repository, error) {
	return parse(defaultPrompts, ".yaml")
}

// Load reads a prompt file (.json, .yaml, .yml or .toml). An empty path yields the
// built-in table.
func Load(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	return parse(data, strings.ToLower(filepath.Ext(path)))
}

func parse(data []byte, ext string) (*Repository, error) {
	entries := map[string]Prompt{}
	var err error
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &entries)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	case ".toml":
		_, err = toml.Decode(string(data), &entries)
	default:
		return nil, fmt.Errorf("unsupported prompt file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("prompt file is empty")
	}
	return New(entries), nil
}

// Lookup returns the prompt stored under name.
func (r *Repository) Lookup(name string) (Prompt, error) {
	p, ok := r.entries[strings.ToUpper(name)]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Generation returns <FIELD>_PROMPT.
func (r *Repository) Generation(field string) (Prompt, error) {
	return r.Lookup(field + "_PROMPT")
}

// Validation returns <FIELD>_VALIDATION_PROMPT. The second result is false
// when the table has no such entry.
func (r *Repository) Validation(field string) (Prompt, bool) {
	p, err := r.Lookup(field + "_VALIDATION_PROMPT")
	return p, err == nil
}

// Hallucination returns <FIELD>_HALLUCINATION, the grading system prompt.
func (r *Repository) Hallucination(field string) (Prompt, error) {
	return r.Lookup(field + "_HALLUCINATION")
}

// Names lists the stored prompt names.
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	return names
}
