// Package llm adapts a chat-completion provider to the two capabilities the
// pipeline needs: prompt-driven generation and hallucination grading.
package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/internal/prompts"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Completer is implemented by chat-completion providers.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Generator renders a prompt template and asks the model to complete it.
type Generator interface {
	Text(ctx context.Context, template string, vars map[string]string) (string, error)
	Structured(ctx context.Context, template string, vars map[string]string) (map[string]json.RawMessage, error)
}

// Grader sends a system and a human message and returns the raw answer.
type Grader interface {
	Grade(ctx context.Context, system, human string) (string, error)
}

// CallObserver receives one callback per provider call.
type CallObserver interface {
	ObserveLLMCall(kind string, elapsed time.Duration, err error)
}

// Client implements Generator and Grader on top of a Completer.
type Client struct {
	completer Completer
	logger    *zap.Logger
	observer  CallObserver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a call observer.
func WithObserver(o CallObserver) ClientOption {
	return func(c *Client) { c.observer = o }
}

// NewClient wraps completer.
func NewClient(completer Completer, opts ...ClientOption) *Client {
	c := &Client{completer: completer, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Text renders template with vars and returns the trimmed completion.
func (c *Client) Text(ctx context.Context, template string, vars map[string]string) (string, error) {
	prompt, err := prompts.Render(template, vars)
	if err != nil {
		return "", NewFatalError(err)
	}
	return c.call(ctx, "text", []Message{{Role: RoleUser, Content: prompt}})
}

// Structured is Text followed by decoding a flat JSON object.
func (c *Client) Structured(ctx context.Context, template string, vars map[string]string) (map[string]json.RawMessage, error) {
	out, err := c.Text(ctx, template, vars)
	if err != nil {
		return nil, err
	}
	obj, err := ParseObject(out)
	if err != nil {
		c.logger.Debug("structured completion rejected", zap.String("completion", out), zap.Error(err))
		return nil, err
	}
	return obj, nil
}

// Grade asks the model to grade human against the system instructions.
func (c *Client) Grade(ctx context.Context, system, human string) (string, error) {
	return c.call(ctx, "grade", []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: human},
	})
}

func (c *Client) call(ctx context.Context, kind string, messages []Message) (string, error) {
	start := time.Now()
	out, err := c.completer.Complete(ctx, messages)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyResponse
	}
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.ObserveLLMCall(kind, elapsed, err)
	}
	if err != nil {
		c.logger.Warn("llm call failed", zap.String("kind", kind), zap.Duration("elapsed", elapsed),
			zap.Bool("transient", IsTransient(err)), zap.Error(err))
		return "", err
	}
	c.logger.Debug("llm call", zap.String("kind", kind), zap.Duration("elapsed", elapsed), zap.Int("chars", len(out)))
	return strings.TrimSpace(out), nil
}
