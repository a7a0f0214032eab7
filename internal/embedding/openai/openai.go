package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	batchSize  int
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Dimension         int
	BatchSize         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewClient creates a new embeddings client using the provided configuration.
// Dimension must be known up front: it is part of the index contract.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: 5,
	}, nil
}

// Name returns the model identity of this embedder.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns one embedding per text, batching requests.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	data, err := sonic.Marshal(embeddingsRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, err
	}
	var (
		vecs       [][]float32
		retryAfter time.Duration
	)
	err = retry.Do(ctx, c.backoff(&retryAfter), func(ctx context.Context) error {
		var err error
		vecs, retryAfter, err = c.post(ctx, data, len(texts))
		return err
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// backoff is exponential from 200ms capped at 5s, with a server-provided
// Retry-After taking precedence for the next wait.
func (c *Client) backoff(retryAfter *time.Duration) retry.Backoff {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxRetries(uint64(c.maxRetries), b)
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if stop {
			return 0, true
		}
		if *retryAfter > 0 {
			d = *retryAfter
		}
		return d, false
	})
}

// post makes one request. Transient failures are wrapped with retry.RetryableError.
func (c *Client) post(ctx context.Context, data []byte, n int) ([][]float32, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, err
		}
		return nil, 0, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		return nil, wait, retry.RetryableError(fmt.Errorf("openai embeddings failed: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("openai embeddings failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	var out embeddingsResponse
	if err := sonic.Unmarshal(payload, &out); err != nil {
		return nil, 0, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(out.Data) != n {
		return nil, 0, errors.New("embedding count does not match input count")
	}
	vecs := make([][]float32, n)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= n {
			return nil, 0, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, 0, nil
}
