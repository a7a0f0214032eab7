// Package openai implements domain.Generator against an OpenAI-compatible
// /chat/completions endpoint.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"agentrag/internal/domain"
	"agentrag/internal/generation"
)

var _ domain.Generator = (*Client)(nil)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 120 * time.Second
)

// Config configures the chat client. The API key is read from the environment
// variable named by APIKeyEnv.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      key,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     rate.NewLimiter(limit, 1),
	}, nil
}

// Model returns the configured chat model.
func (c *Client) Model() string { return c.model }

// Generate asks the model to answer query from the given context passages.
func (c *Client) Generate(ctx context.Context, contexts []string, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	body, err := sonic.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: generation.SystemPrompt},
			{Role: "user", Content: generation.BuildPrompt(contexts, query)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", domain.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// Network failures, 429/5xx and malformed or empty completions are transient.
	resp, err := c.http.Do(req)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("%w: send request: %w", domain.ErrGeneration, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("%w: read response: %w", domain.ErrGeneration, err))
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: status %d: %s", domain.ErrGeneration, resp.StatusCode, bytes.TrimSpace(raw))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", retry.RetryableError(err)
		}
		return "", err
	}

	var out chatCompletionResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return "", retry.RetryableError(fmt.Errorf("%w: decode response: %w", domain.ErrGeneration, err))
	}
	if out.Error != nil {
		return "", retry.RetryableError(fmt.Errorf("%w: %s", domain.ErrGeneration, out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", retry.RetryableError(fmt.Errorf("%w: no choices returned", domain.ErrGeneration))
	}
	return out.Choices[0].Message.Content, nil
}
