package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
)

// GeminiClient implements Client on top of the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed client. baseURL may be empty.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Chat maps the system message onto the system instruction and sends the
// remaining turns as user content.
func (g *GeminiClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		TopP:            genai.Ptr(float32(req.TopP)),
		Seed:            genai.Ptr(int32(req.Seed)),
		MaxOutputTokens: int32(req.MaxTokens),
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == "system" {
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	logging.LLMDebug("[gemini] Chat: model=%s turns=%d", req.Model, len(contents))
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", wrapTransport(string(ProviderGemini), err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
