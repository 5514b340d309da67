package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
)

// GroqBaseURL is the OpenAI-compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIBaseURL is the OpenAI endpoint.
const OpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig holds configuration for an OpenAI-compatible provider.
type OpenAIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// OpenAIClient implements Client for any OpenAI-compatible chat endpoint
// (Groq, OpenAI). It makes exactly one HTTP attempt per call.
type OpenAIClient struct {
	provider   string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// DefaultGroqConfig returns sensible defaults for Groq.
func DefaultGroqConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		Provider: string(ProviderGroq),
		APIKey:   apiKey,
		BaseURL:  GroqBaseURL,
		Timeout:  defaultTimeout,
	}
}

// NewOpenAIClient creates a client with custom config.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Provider == "" {
		cfg.Provider = string(ProviderOpenAI)
	}
	return &OpenAIClient{
		provider: cfg.Provider,
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	Seed        int       `json:"seed"`
	MaxTokens   int       `json:"max_completion_tokens"`
	Stream      bool      `json:"stream"`
}

type openAIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Chat sends the request and returns the first choice's content.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%s: API key not configured", c.provider)
	}

	start := time.Now()
	logging.LLMDebug("[%s] Chat: model=%s messages=%d", c.provider, req.Model, len(req.Messages))

	payload, err := json.Marshal(openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Seed:        req.Seed,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logging.LLMError("[%s] Chat: request failed after %v: %v", c.provider, time.Since(start), err)
		return "", &ServiceError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Provider: c.provider, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: API request failed with status %d: %s", c.provider, resp.StatusCode, string(body))
	}

	var out openAIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s: API error: %s", c.provider, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: no completion returned", c.provider)
	}

	answer := strings.TrimSpace(out.Choices[0].Message.Content)
	logging.LLMDebug("[%s] Chat: completed in %v answer_len=%d", c.provider, time.Since(start), len(answer))
	return answer, nil
}
