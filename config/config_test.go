package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("TAVILY_API_KEY", "tavily-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 4.0, cfg.LLM.RequestsPerSecond)
	assert.Equal(t, 10, cfg.LLM.Burst)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)

	assert.Equal(t, "tavily", cfg.Search.Provider)
	assert.Equal(t, "tavily-key", cfg.Search.APIKey)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, "general", cfg.Search.Topic)
	assert.Equal(t, "advanced", cfg.Search.Depth)

	assert.Equal(t, "recovery", cfg.Paths.RecoveryDir)
	assert.Equal(t, "outputs", cfg.Paths.OutputDir)
	assert.Equal(t, 1, cfg.Pipeline.MaxConcurrency)
	assert.Equal(t, 5, cfg.Pipeline.PlanAttempts)
	assert.Equal(t, 3, cfg.Pipeline.GateAttempts)
	assert.False(t, cfg.Pipeline.SaveFinalState)
	assert.Equal(t, "file", cfg.Checkpoint.Backend)
	assert.True(t, cfg.Report.HTML)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  api_key: file-key
  model: gpt-4o-mini
search:
  provider: serper
  api_key: serper-key
  topic: news
  days: 30
pipeline:
  save_final_state: true
`), 0o644))
	t.Setenv("REPORTER_PIPELINE_GATE_ATTEMPTS", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "news", cfg.Search.Topic)
	assert.Equal(t, 30, cfg.Search.Days)
	assert.True(t, cfg.Pipeline.SaveFinalState)
	assert.Equal(t, 1, cfg.Pipeline.GateAttempts)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsParallelExecution(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPORTER_PIPELINE_MAX_CONCURRENCY", "4")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrency")
}

func TestSectionValidation(t *testing.T) {
	assert.Error(t, LLMConfig{Provider: "anthropic", Model: "m", MaxTokens: 1}.Validate())
	assert.Error(t, LLMConfig{Provider: "groq", MaxTokens: 1}.Validate())
	assert.NoError(t, LLMConfig{Provider: "groq", Model: "m", MaxTokens: 1}.Validate())

	assert.Error(t, SearchConfig{Provider: "bing", Topic: "general", Fetcher: "http"}.Validate())
	assert.Error(t, SearchConfig{Provider: "tavily", Topic: "news", Fetcher: "http"}.Validate())
	assert.Error(t, SearchConfig{Provider: "tavily", Topic: "general", Fetcher: "wget"}.Validate())

	assert.Error(t, CheckpointConfig{Backend: "s3"}.Validate())
	assert.Error(t, CheckpointConfig{Backend: "redis"}.Validate())
	assert.NoError(t, CheckpointConfig{Backend: "redis", Redis: RedisConfig{Addr: "localhost:6379"}}.Validate())

	assert.Error(t, PipelineConfig{MaxConcurrency: 1, PlanAttempts: -1, MaxInvalidVerdicts: 1}.Validate())
	assert.Error(t, GeneralConfig{LogFormat: "xml"}.Validate())
}

func TestSearchNormalizeReadsProviderKey(t *testing.T) {
	t.Setenv("BRAVE_API_KEY", "brave-key")
	c := SearchConfig{Provider: " Brave "}.Normalize()
	assert.Equal(t, "brave", c.Provider)
	assert.Equal(t, "brave-key", c.APIKey)
	assert.Equal(t, 3, c.MaxResults)
}
