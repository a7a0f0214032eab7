package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrag/internal/domain"
	"agentrag/internal/generation"
	"agentrag/internal/message"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("TEST_CHAT_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "TEST_CHAT_KEY"})
	require.NoError(t, err)
	return c
}

func TestGenerate_SendsPrompt(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&got)) {
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"42"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	answer, err := c.Generate(context.Background(), []string{"ctx a", "ctx b"}, "meaning?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, generation.SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, generation.BuildPrompt([]string{"ctx a", "ctx b"}, "meaning?"), got.Messages[1].Content)
}

func TestGenerate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"unauthorized is final", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, 1},
		{"rate limited is retried", http.StatusTooManyRequests, `{}`, 2},
		{"server error is retried", http.StatusBadGateway, `oops`, 2},
		{"api error body is retried", http.StatusOK, `{"error":{"message":"overloaded"}}`, 2},
		{"no choices is retried", http.StatusOK, `{"choices":[]}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c := newTestClient(t, srv.URL)

			_, err := c.Generate(context.Background(), []string{"c"}, "q")
			assert.ErrorIs(t, err, domain.ErrGeneration)

			calls.Store(0)
			adapter := generation.NewAdapter(c, generation.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})
			out := adapter.Handle(context.Background(), message.RetrievalResult{
				RetrievedContext:      []string{"c"},
				SourceContextMetadata: []string{"Source: c.txt, Type: txt_md, Chunk ID: 0"},
				Query:                 "q",
			})
			assert.Equal(t, generation.Apology, out.Answer)
			assert.Empty(t, out.SourceContext)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("TEST_CHAT_KEY_EMPTY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_CHAT_KEY_EMPTY"})
	assert.Error(t, err)
}
