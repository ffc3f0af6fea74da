package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a reporter run.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Report     ReportConfig     `mapstructure:"report"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json or console
	Query     string `mapstructure:"query"`
}

func (g GeneralConfig) Validate() error {
	switch g.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("general.log_format must be json or console, got %q", g.LogFormat)
	}
	return nil
}

// LLMConfig describes the OpenAI-compatible chat endpoint.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // openai or groq
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// Normalize fills the API key from the provider's conventional env var.
func (c LLMConfig) Normalize() LLMConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if strings.TrimSpace(c.APIKey) == "" {
		switch c.Provider {
		case "groq":
			c.APIKey = os.Getenv("GROQ_API_KEY")
		case "openai":
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return c
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case "openai", "groq":
	default:
		return fmt.Errorf("llm.provider must be openai or groq, got %q", c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("llm.model is required")
	}
	if c.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be greater than zero")
	}
	if c.MaxRetries < 0 {
		return errors.New("llm.max_retries cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("llm.requests_per_second cannot be negative")
	}
	return nil
}

// SearchConfig selects the web search provider and its parameters.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // tavily, serper or brave
	APIKey       string        `mapstructure:"api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Topic        string        `mapstructure:"topic"` // general or news
	Days         int           `mapstructure:"days"`
	Depth        string        `mapstructure:"depth"`
	MaxRetries   int           `mapstructure:"max_retries"`
	FetchPages   bool          `mapstructure:"fetch_pages"`
	Fetcher      string        `mapstructure:"fetcher"` // http or chromedp
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxChars     int           `mapstructure:"max_chars"`
}

// Normalize fills the API key from the provider's conventional env var.
func (c SearchConfig) Normalize() SearchConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Topic = strings.ToLower(strings.TrimSpace(c.Topic))
	if strings.TrimSpace(c.APIKey) == "" && c.Provider != "" {
		c.APIKey = os.Getenv(strings.ToUpper(c.Provider) + "_API_KEY")
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 3
	}
	return c
}

func (c SearchConfig) Validate() error {
	switch c.Provider {
	case "tavily", "serper", "brave":
	default:
		return fmt.Errorf("search.provider must be tavily, serper or brave, got %q", c.Provider)
	}
	switch c.Topic {
	case "general", "news":
	default:
		return fmt.Errorf("search.topic must be general or news, got %q", c.Topic)
	}
	if c.Topic == "news" && c.Days <= 0 {
		return errors.New("search.days must be greater than zero for news searches")
	}
	switch c.Fetcher {
	case "http", "chromedp":
	default:
		return fmt.Errorf("search.fetcher must be http or chromedp, got %q", c.Fetcher)
	}
	return nil
}

// PathsConfig contains file locations.
type PathsConfig struct {
	RecoveryDir string `mapstructure:"recovery_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	PromptFile  string `mapstructure:"prompt_file"` // empty uses the built-in prompts
}

func (p PathsConfig) Validate() error {
	if strings.TrimSpace(p.RecoveryDir) == "" {
		return errors.New("paths.recovery_dir is required")
	}
	if strings.TrimSpace(p.OutputDir) == "" {
		return errors.New("paths.output_dir is required")
	}
	return nil
}

// PipelineConfig bounds the planning and verification loops.
type PipelineConfig struct {
	MaxConcurrency     int  `mapstructure:"max_concurrency"`
	SaveFinalState     bool `mapstructure:"save_final_state"`
	PlanAttempts       int  `mapstructure:"plan_attempts"`
	GateAttempts       int  `mapstructure:"gate_attempts"`
	MaxInvalidVerdicts int  `mapstructure:"max_invalid_verdicts"`
}

func (p PipelineConfig) Validate() error {
	if p.MaxConcurrency != 1 {
		return fmt.Errorf("pipeline.max_concurrency must be 1, got %d", p.MaxConcurrency)
	}
	if p.PlanAttempts < 0 {
		return errors.New("pipeline.plan_attempts cannot be negative")
	}
	if p.GateAttempts < 0 {
		return errors.New("pipeline.gate_attempts cannot be negative")
	}
	if p.MaxInvalidVerdicts <= 0 {
		return errors.New("pipeline.max_invalid_verdicts must be greater than zero")
	}
	return nil
}

// CheckpointConfig selects where checkpoints are stored.
type CheckpointConfig struct {
	Backend string      `mapstructure:"backend"` // file or redis
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (c CheckpointConfig) Validate() error {
	switch c.Backend {
	case "file":
		return nil
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("checkpoint.redis.addr required")
		}
		return nil
	default:
		return fmt.Errorf("checkpoint.backend must be file or redis, got %q", c.Backend)
	}
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables /metrics
}

// ReportConfig controls the final report outputs.
type ReportConfig struct {
	HTML bool `mapstructure:"html"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "console")
	v.SetDefault("general.query", "")

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.requests_per_second", 4.0)
	v.SetDefault("llm.burst", 10)

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.topic", "general")
	v.SetDefault("search.days", 100)
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.fetch_pages", false)
	v.SetDefault("search.fetcher", "http")
	v.SetDefault("search.fetch_timeout", 15*time.Second)
	v.SetDefault("search.max_chars", 20000)

	v.SetDefault("paths.recovery_dir", "recovery")
	v.SetDefault("paths.output_dir", "outputs")
	v.SetDefault("paths.prompt_file", "")

	v.SetDefault("pipeline.max_concurrency", 1)
	v.SetDefault("pipeline.save_final_state", false)
	v.SetDefault("pipeline.plan_attempts", 5)
	v.SetDefault("pipeline.gate_attempts", 3)
	v.SetDefault("pipeline.max_invalid_verdicts", 10)

	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.redis.addr", "localhost:6379")
	v.SetDefault("checkpoint.redis.password", "")
	v.SetDefault("checkpoint.redis.db", 0)
	v.SetDefault("checkpoint.redis.prefix", "reporter:")
	v.SetDefault("checkpoint.redis.ttl", 7*24*time.Hour)
	v.SetDefault("checkpoint.redis.timeout", 5*time.Second)

	v.SetDefault("telemetry.metrics_addr", "")
	v.SetDefault("report.html", true)
}

// Load reads the config file at path, or looks for config.{yaml,json,toml} in
// the usual places when path is empty. A missing file is not an error:
// defaults and REPORTER_* environment variables are enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("REPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM = cfg.LLM.Normalize()
	cfg.Search = cfg.Search.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.General.Validate,
		c.LLM.Validate,
		c.Search.Validate,
		c.Paths.Validate,
		c.Pipeline.Validate,
		c.Checkpoint.Validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
