package provider

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/config"
	"github.com/mohammad-safakhou/reporter/internal/llm"
	openai_provider "github.com/mohammad-safakhou/reporter/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
	Groq   Client = "groq"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

var ErrMissingAPIKey = errors.New("llm api key not set")

// NewProvider creates the chat-completion client described by cfg.
func NewProvider(cfg config.LLMConfig, logger *zap.Logger) (llm.Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, cfg.Provider)
	}
	base := cfg.BaseURL
	switch Client(cfg.Provider) {
	case OpenAI:
	case Groq:
		if base == "" {
			base = GroqBaseURL
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
	return openai_provider.NewOpenAIClient(openai_provider.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           base,
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger.Named(cfg.Provider)), nil
}
