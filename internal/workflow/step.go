package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// Mode selects how a completion is written back into the state.
type Mode int

const (
	// ModeText stores the completion verbatim in the target field.
	ModeText Mode = iota
	// ModeStructured decodes a flat JSON object and sets every key that names
	// a field of the state.
	ModeStructured
)

// Step produces one field of a state from the <FIELD>_PROMPT template.
type Step[P state.Stateful] struct {
	Field  string
	Mode   Mode
	Fields state.Fields[P]
	Env    *Env
	// Optional lets a structured completion omit the target key. The field
	// is then left cleared.
	Optional bool
}

// Run generates the target field. When the state is being recovered and the
// field already holds a value, Run does nothing. Any failure checkpoints the
// state and returns a *FatalError.
func (s Step[P]) Run(ctx context.Context, st P) error {
	logger := s.Env.logger().With(zap.String("field", s.Field))
	ctl := st.Ctl()

	target, err := s.Fields.Lookup(s.Field)
	if err != nil {
		return fail(ctx, s.Env.store(), logger, st, s.Field, err)
	}
	if ctl.LoadRecovery && !target.Empty(st) {
		logger.Debug("recovered value kept")
		return nil
	}
	ctl.LoadRecovery = false

	start := time.Now()
	err = s.generate(ctx, st, target)
	s.Env.observer().ObserveStep(s.Field, time.Since(start), err)
	if err != nil {
		return fail(ctx, s.Env.store(), logger, st, s.Field, err)
	}
	logger.Debug("field generated", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s Step[P]) generate(ctx context.Context, st P, target state.Field[P]) error {
	prompt, err := s.Env.Prompts.Generation(s.Field)
	if err != nil {
		return err
	}
	vars := make(map[string]string, len(prompt.Keywords))
	for _, kw := range prompt.Keywords {
		f, err := s.Fields.Lookup(kw)
		if err != nil {
			return fmt.Errorf("prompt keyword: %w", err)
		}
		vars[kw] = f.Get(st)
	}

	switch s.Mode {
	case ModeText:
		if target.SetText == nil {
			return fmt.Errorf("field %q does not take text", s.Field)
		}
		out, err := s.Env.Generator.Text(ctx, prompt.Text, vars)
		if err != nil {
			return err
		}
		target.SetText(st, out)
		return nil
	case ModeStructured:
		obj, err := s.Env.Generator.Structured(ctx, prompt.Text, vars)
		if err != nil {
			return err
		}
		if _, ok := obj[s.Field]; !ok {
			if !s.Optional || target.Clear == nil {
				return fmt.Errorf("completion has no %q key", s.Field)
			}
			target.Clear(st)
		}
		for key, raw := range obj {
			f, ok := s.Fields[key]
			if !ok || f.SetJSON == nil {
				continue
			}
			if err := f.SetJSON(st, raw); err != nil {
				return fmt.Errorf("decode %q: %w", key, err)
			}
		}
		return nil
	default:
		return errors.New("unknown step mode")
	}
}
