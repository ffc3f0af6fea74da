package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reporter/config"
)

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"openai", "groq"} {
		c, err := NewProvider(config.LLMConfig{Provider: name, APIKey: "k", Model: "m", MaxTokens: 1}, zap.NewNop())
		require.NoError(t, err, name)
		assert.NotNil(t, c)
	}
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider(config.LLMConfig{Provider: "groq", Model: "m"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(config.LLMConfig{Provider: "gemini", APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)
}
