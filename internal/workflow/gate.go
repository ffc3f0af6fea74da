package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/state"
)

// UnverifiedMarker prefixes output accepted without a passing grade because
// the attempt budget ran out.
const UnverifiedMarker = "> **Unverified:** this section could not be checked against its sources.\n\n"

// DefaultMaxInvalidVerdicts is used when Env.MaxInvalidVerdicts is unset.
const DefaultMaxInvalidVerdicts = 10

// Gate asks a grader whether a generated field is hallucinated. It sets the
// state's retry verdict: yes means regenerate, no means move on.
type Gate[P state.Stateful] struct {
	Field  string
	Fields state.Fields[P]
	// Human renders the grading input: the source material and the candidate.
	Human func(P) string
	Env   *Env
}

// Check grades the current candidate. Every graded attempt consumes one unit
// of max_retry; once none are left the candidate is accepted and annotated.
func (g Gate[P]) Check(ctx context.Context, st P) error {
	logger := g.Env.logger().With(zap.String("field", g.Field))
	ctl := st.Ctl()
	obs := g.Env.observer()

	if ctl.LoadRecovery {
		ctl.Retry = state.RetryNo
		return nil
	}
	target, err := g.Fields.Lookup(g.Field)
	if err != nil {
		return fail(ctx, g.Env.store(), logger, st, g.Field, err)
	}
	if ctl.MaxRetry <= 0 {
		Annotate(st, target)
		ctl.Retry = state.RetryNo
		obs.ObserveVerdict(g.Field, VerdictUnverified)
		logger.Warn("attempts exhausted, accepting unverified output")
		return nil
	}
	ctl.MaxRetry--

	system, err := g.Env.Prompts.Hallucination(g.Field)
	if err != nil {
		return g.gradeFailed(ctx, st, target, logger, err)
	}
	human := g.Human(st)

	limit := g.Env.MaxInvalidVerdicts
	if limit <= 0 {
		limit = DefaultMaxInvalidVerdicts
	}
	for invalid := 0; ; {
		answer, err := g.Env.Grader.Grade(ctx, system.Text, human)
		if err != nil {
			return g.gradeFailed(ctx, st, target, logger, err)
		}
		if v, ok := ParseVerdict(answer); ok {
			ctl.Retry = v
			obs.ObserveVerdict(g.Field, string(v))
			logger.Debug("graded", zap.String("verdict", string(v)), zap.Int("attempts_left", ctl.MaxRetry))
			return nil
		}
		invalid++
		obs.ObserveVerdict(g.Field, VerdictInvalid)
		logger.Warn("grader answered without a verdict", zap.String("answer", answer), zap.Int("invalid", invalid))
		if invalid >= limit {
			return g.gradeFailed(ctx, st, target, logger, fmt.Errorf("no yes/no verdict after %d answers", invalid))
		}
	}
}

func (g Gate[P]) gradeFailed(ctx context.Context, st P, target state.Field[P], logger *zap.Logger, err error) error {
	target.Clear(st)
	return fail(ctx, g.Env.store(), logger, st, g.Field, fmt.Errorf("grading: %w", err))
}

// ParseVerdict reads a yes/no answer. Only the first word counts, ignoring
// case, quotes and punctuation.
func ParseVerdict(answer string) (state.Verdict, bool) {
	word := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(word) == 0 {
		return state.RetryPending, false
	}
	switch word[0] {
	case "yes":
		return state.RetryYes, true
	case "no":
		return state.RetryNo, true
	}
	return state.RetryPending, false
}

// Annotate prefixes a text field with UnverifiedMarker once.
func Annotate[P any](st P, f state.Field[P]) {
	if f.SetText == nil {
		return
	}
	v := f.Get(st)
	if strings.HasPrefix(v, UnverifiedMarker) {
		return
	}
	f.SetText(st, UnverifiedMarker+v)
}

// generateChecked runs step and gate until the gate stops asking for a retry.
// The loop ends because every graded attempt spends max_retry.
func generateChecked[P state.Stateful](ctx context.Context, st P, step Step[P], gate Gate[P]) error {
	for {
		if err := step.Run(ctx, st); err != nil {
			return err
		}
		if err := gate.Check(ctx, st); err != nil {
			return err
		}
		ctl := st.Ctl()
		if ctl.Retry != state.RetryYes {
			return nil
		}
		ctl.Retry = state.RetryPending
	}
}
