package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Chat_Success(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"  True \n"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(DefaultGroqConfig("test-key"))
	client.baseURL = server.URL

	answer, err := client.Chat(context.Background(), DefaultEnvelope().Request("system text", "user text"))
	require.NoError(t, err)
	assert.Equal(t, "True", answer)

	assert.Equal(t, DefaultModel, got["model"])
	assert.Equal(t, 0.7, got["temperature"])
	assert.Equal(t, 0.95, got["top_p"])
	assert.Equal(t, float64(42), got["seed"])
	assert.Equal(t, float64(8192), got["max_completion_tokens"])
	assert.Equal(t, false, got["stream"])
	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "user text", msgs[1].(map[string]interface{})["content"])
}

func TestOpenAIClient_Chat_SingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(DefaultGroqConfig("test-key"))
	client.baseURL = server.URL

	_, err := client.Chat(context.Background(), DefaultEnvelope().Request("s", "u"))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.False(t, IsServiceError(err), "status errors are not transport errors")
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClient_Chat_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: url, Timeout: time.Second})
	_, err := client.Chat(context.Background(), DefaultEnvelope().Request("s", "u"))
	require.Error(t, err)
	assert.True(t, IsServiceError(err))

	var svc *ServiceError
	require.ErrorAs(t, err, &svc)
	assert.Equal(t, "openai", svc.Provider)
}

func TestOpenAIClient_Chat_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Chat(context.Background(), DefaultEnvelope().Request("s", "u"))
	require.Error(t, err)
	assert.True(t, IsServiceError(err))
}

func TestOpenAIClient_Chat_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(DefaultGroqConfig("k"))
	client.baseURL = server.URL
	_, err := client.Chat(context.Background(), DefaultEnvelope().Request("s", "u"))
	require.Error(t, err)
	assert.False(t, IsServiceError(err))
}

func TestOpenAIClient_Chat_MissingKey(t *testing.T) {
	client := NewOpenAIClient(DefaultGroqConfig(""))
	_, err := client.Chat(context.Background(), DefaultEnvelope().Request("s", "u"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	c, err := NewClient(ctx, ProviderConfig{Provider: ProviderGroq, APIKey: "k"})
	require.NoError(t, err)
	oc := c.(*OpenAIClient)
	assert.Equal(t, GroqBaseURL, oc.baseURL)
	assert.Equal(t, "groq", oc.provider)

	c, err = NewClient(ctx, ProviderConfig{Provider: ProviderOpenAI, APIKey: "k", BaseURL: "http://local/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "http://local/v1", c.(*OpenAIClient).baseURL)

	_, err = NewClient(ctx, ProviderConfig{Provider: ProviderGemini})
	assert.Error(t, err, "gemini requires a key")

	_, err = NewClient(ctx, ProviderConfig{Provider: "anthropic", APIKey: "k"})
	assert.Error(t, err)
}

func TestIsTransportError(t *testing.T) {
	assert.False(t, isTransportError(nil))
	assert.True(t, isTransportError(context.DeadlineExceeded))
	assert.False(t, isTransportError(assert.AnError))
}
