package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubCompleter struct {
	reply    string
	err      error
	messages [][]Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	s.messages = append(s.messages, messages)
	return s.reply, s.err
}

type countingObserver struct {
	kinds []string
	errs  int
}

func (o *countingObserver) ObserveLLMCall(kind string, _ time.Duration, err error) {
	o.kinds = append(o.kinds, kind)
	if err != nil {
		o.errs++
	}
}

func TestClientTextRendersTemplate(t *testing.T) {
	stub := &stubCompleter{reply: "  Topic X \n"}
	obs := &countingObserver{}
	c := NewClient(stub, WithObserver(obs))

	out, err := c.Text(context.Background(), "Name this: {query}", map[string]string{"query": "topic x"})
	require.NoError(t, err)
	assert.Equal(t, "Topic X", out)
	require.Len(t, stub.messages, 1)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "Name this: topic x"}}, stub.messages[0])
	assert.Equal(t, []string{"text"}, obs.kinds)
}

func TestClientTextRenderFailureIsFatal(t *testing.T) {
	stub := &stubCompleter{reply: "x"}
	c := NewClient(stub)

	_, err := c.Text(context.Background(), "Name this: {query}", map[string]string{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Empty(t, stub.messages)
}

func TestClientStructured(t *testing.T) {
	stub := &stubCompleter{reply: "Here you go:\n```json\n{\"tasks\": [[\"format\", null, []],]}\n```"}
	c := NewClient(stub)

	obj, err := c.Structured(context.Background(), "plan", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[["format", null, []]]`, string(obj["tasks"]))
}

func TestClientStructuredWithoutJSON(t *testing.T) {
	c := NewClient(&stubCompleter{reply: "I cannot help with that"})
	_, err := c.Structured(context.Background(), "plan", nil)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestClientGradeSendsSystemAndHuman(t *testing.T) {
	stub := &stubCompleter{reply: "no"}
	c := NewClient(stub)

	out, err := c.Grade(context.Background(), "grade it", "Summary: {not a placeholder}")
	require.NoError(t, err)
	assert.Equal(t, "no", out)
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "grade it"},
		{Role: RoleUser, Content: "Summary: {not a placeholder}"},
	}, stub.messages[0])
}

func TestClientLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	obs := &countingObserver{}
	c := NewClient(&stubCompleter{err: NewTransientError(errors.New("boom"))}, WithLogger(zap.New(core)), WithObserver(obs))

	_, err := c.Grade(context.Background(), "s", "h")
	require.Error(t, err)
	failed := logs.FilterMessage("llm call failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, true, failed[0].ContextMap()["transient"])
	assert.Equal(t, 1, obs.errs)
}

func TestClientEmptyCompletion(t *testing.T) {
	c := NewClient(&stubCompleter{reply: "   "})
	_, err := c.Text(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestErrorClassification(t *testing.T) {
	base := errors.New("429")
	assert.True(t, IsTransient(NewTransientError(base)))
	assert.False(t, IsFatal(NewTransientError(base)))
	assert.ErrorIs(t, NewFatalError(base), base)
}
