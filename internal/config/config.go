// Package config loads the service configuration from YAML with environment
// overrides, and watches the file so rate-limit rules can change at runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/llm"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/ratelimit"
)

// Config holds all service configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Engine    EngineConfig    `yaml:"engine"`
}

// LLMConfig configures the chat-completion provider and request envelope.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // groq, openai, gemini
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	Seed        int     `yaml:"seed"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// RateSpec is a rate in requests per Per seconds.
type RateSpec struct {
	Rate int `yaml:"rate"`
	Per  int `yaml:"per"`
}

// RateLimitConfig configures the request gate.
type RateLimitConfig struct {
	Default           RateSpec            `yaml:"default"`
	CustomRates       map[string]RateSpec `yaml:"custom_rates"`
	ExemptPaths       []string            `yaml:"exempt_paths"`
	RateLimitAllPaths bool                `yaml:"rate_limit_all_paths"`
	Redis             RedisConfig         `yaml:"redis"`
}

// RedisConfig selects a shared counter store. An empty Addr keeps counters in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite, postgres
	DSN    string `yaml:"dsn"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	UserHeader   string `yaml:"user_header"` // trusted upstream user-id header; empty disables
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	Output     string          `yaml:"output"` // stderr or a file path
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// EngineConfig configures the grid.
type EngineConfig struct {
	MaxColumns int `yaml:"max_columns"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	env := llm.DefaultEnvelope()
	return &Config{
		LLM: LLMConfig{
			Provider:    string(llm.ProviderGroq),
			Model:       env.Model,
			Temperature: env.Temperature,
			TopP:        env.TopP,
			Seed:        env.Seed,
			MaxTokens:   env.MaxTokens,
			Timeout:     "60s",
		},
		RateLimit: RateLimitConfig{
			Default:           RateSpec{Rate: 6, Per: 60},
			ExemptPaths:       []string{"/healthz", "/metrics"},
			RateLimitAllPaths: true,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/maams.db",
		},
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  "15s",
			WriteTimeout: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Engine: EngineConfig{
			MaxColumns: 5,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// provider keys, lowest priority first
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = string(llm.ProviderGemini)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = string(llm.ProviderOpenAI)
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = string(llm.ProviderGroq)
	}
	if m := os.Getenv("MAAMS_LLM_MODEL"); m != "" {
		c.LLM.Model = m
	}

	if d := os.Getenv("MAAMS_DB_DRIVER"); d != "" {
		c.Database.Driver = d
	}
	if dsn := os.Getenv("MAAMS_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.RateLimit.Redis.Addr = addr
	}
	if addr := os.Getenv("MAAMS_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if lvl := os.Getenv("MAAMS_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{string(llm.ProviderGroq), string(llm.ProviderOpenAI), string(llm.ProviderGemini)}

// ValidDrivers lists all supported database drivers.
var ValidDrivers = []string{"memory", "sqlite", "postgres"}

// Validate checks the parts of the configuration the server cannot run without.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GROQ_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY)")
	}
	if !contains(ValidDrivers, c.Database.Driver) {
		return fmt.Errorf("invalid database driver: %s (valid: %v)", c.Database.Driver, ValidDrivers)
	}
	if err := c.RateLimit.validate(); err != nil {
		return err
	}
	if c.Engine.MaxColumns < 1 {
		return fmt.Errorf("engine.max_columns must be positive, got %d", c.Engine.MaxColumns)
	}
	return nil
}

func (r RateLimitConfig) validate() error {
	if r.Default.Rate <= 0 || r.Default.Per <= 0 {
		return fmt.Errorf("rate_limit.default must have positive rate and per, got %+v", r.Default)
	}
	for prefix, spec := range r.CustomRates {
		if spec.Rate < 0 || spec.Per < 0 {
			return fmt.Errorf("rate_limit.custom_rates[%s] must not be negative", prefix)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetReadTimeout returns the HTTP read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout. Validation runs issue many
// sequential LLM calls, so this is long.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 5*time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Envelope returns the fixed LLM request envelope.
func (c *Config) Envelope() llm.Envelope {
	env := llm.DefaultEnvelope()
	if c.LLM.Model != "" {
		env.Model = c.LLM.Model
	}
	env.Temperature = c.LLM.Temperature
	env.TopP = c.LLM.TopP
	env.Seed = c.LLM.Seed
	if c.LLM.MaxTokens > 0 {
		env.MaxTokens = c.LLM.MaxTokens
	}
	return env
}

// ProviderConfig returns the settings for llm.NewClient.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider: llm.Provider(c.LLM.Provider),
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
		Timeout:  c.GetLLMTimeout(),
	}
}

// Rules converts the rate-limit section into limiter rules.
func (r RateLimitConfig) Rules() ratelimit.Rules {
	rules := ratelimit.Rules{
		Default:       ratelimit.Rate{Rate: r.Default.Rate, Per: time.Duration(r.Default.Per) * time.Second},
		Custom:        make(map[string]ratelimit.Rate, len(r.CustomRates)),
		Exempt:        append([]string(nil), r.ExemptPaths...),
		LimitAllPaths: r.RateLimitAllPaths,
	}
	for prefix, spec := range r.CustomRates {
		rules.Custom[prefix] = ratelimit.Rate{Rate: spec.Rate, Per: time.Duration(spec.Per) * time.Second}
	}
	return rules
}

// LoggingOptions converts the logging section for logging.Initialize.
func (l LoggingConfig) LoggingOptions() logging.Config {
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.Output,
		Categories: l.Categories,
	}
}
