package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ProviderConfig holds the resolved provider settings.
type ProviderConfig struct {
	Provider Provider
	APIKey   string
	BaseURL  string // optional override
	Timeout  time.Duration
}

// NewClient builds the Client for cfg.Provider.
func NewClient(ctx context.Context, cfg ProviderConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderGroq, "":
		oc := DefaultGroqConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			oc.Timeout = cfg.Timeout
		}
		return NewOpenAIClient(oc), nil
	case ProviderOpenAI:
		base := cfg.BaseURL
		if base == "" {
			base = OpenAIBaseURL
		}
		return NewOpenAIClient(OpenAIConfig{
			Provider: string(ProviderOpenAI),
			APIKey:   cfg.APIKey,
			BaseURL:  base,
			Timeout:  cfg.Timeout,
		}), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
