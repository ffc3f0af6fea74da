package openai_provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mohammad-safakhou/reporter/internal/llm"
)

// Config holds the chat-completion settings of one OpenAI-compatible endpoint.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
	// InitialBackoff is the first retry delay; zero uses the backoff default.
	InitialBackoff time.Duration
}

// Client implements llm.Completer over an OpenAI-compatible API. Calls are
// rate limited and transient failures are retried with exponential backoff.
type Client struct {
	api     *openai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIClient creates a new client. A zero RequestsPerSecond disables rate
// limiting.
func NewOpenAIClient(cfg Config, logger *zap.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:     openai.NewClientWithConfig(oc),
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Complete sends messages and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	var out string
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			err = classify(err)
			if llm.IsTransient(err) {
				c.logger.Warn("chat completion failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(llm.NewFatalError(errors.New("no choices in response")))
		}
		out = resp.Choices[0].Message.Content
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", c.cfg.Model, err)
	}
	return out, nil
}

// classify wraps err as an llm.ProviderError: 429, 5xx and network errors
// are retryable, everything else is not.
func classify(err error) error {
	if retryable(err) {
		return llm.NewTransientError(err)
	}
	return llm.NewFatalError(err)
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}
