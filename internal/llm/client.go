// Package llm wraps chat-completion providers behind a single-shot adapter
// that coerces free-form answers into a small enumerated result set.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the full request envelope sent to a provider.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	TopP        float64
	Seed        int
	MaxTokens   int
	Stream      bool
}

// Client performs one chat completion and returns the raw answer text.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Envelope holds the per-deployment constants of every request.
type Envelope struct {
	Model       string
	Temperature float64
	TopP        float64
	Seed        int
	MaxTokens   int
}

// DefaultModel is the Groq-hosted model used when none is configured.
const DefaultModel = "deepseek-r1-distill-llama-70b"

// DefaultEnvelope returns the deterministic configuration used in production.
func DefaultEnvelope() Envelope {
	return Envelope{
		Model:       DefaultModel,
		Temperature: 0.7,
		TopP:        0.95,
		Seed:        42,
		MaxTokens:   8192,
	}
}

// Request builds a non-streaming request carrying a system and a user message.
func (e Envelope) Request(system, user string) ChatRequest {
	return ChatRequest{
		Model: e.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: e.Temperature,
		TopP:        e.TopP,
		Seed:        e.Seed,
		MaxTokens:   e.MaxTokens,
		Stream:      false,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrAIService is matched by errors.Is for every ServiceError.
var ErrAIService = errors.New(types.MsgAIServiceError)

// ServiceError reports a transport or I/O failure talking to the provider.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", types.MsgAIServiceError, e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAIService) true for any ServiceError.
func (e *ServiceError) Is(target error) bool { return target == ErrAIService }

// IsServiceError reports whether err is an AI_SERVICE_ERROR.
func IsServiceError(err error) bool { return errors.Is(err, ErrAIService) }

// isTransportError reports whether err came from the network or an I/O
// failure rather than from the provider's answer.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func wrapTransport(provider string, err error) error {
	if isTransportError(err) {
		return &ServiceError{Provider: provider, Err: err}
	}
	return err
}

// defaultTimeout bounds a single call when the caller's context has no deadline.
const defaultTimeout = 60 * time.Second
