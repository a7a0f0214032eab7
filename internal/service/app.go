// Package service assembles the coordinator and its roles from configuration.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agentrag/internal/chunker"
	"agentrag/internal/config"
	"agentrag/internal/coordinator"
	"agentrag/internal/domain"
	"agentrag/internal/embedding/hashing"
	embopenai "agentrag/internal/embedding/openai"
	"agentrag/internal/extract"
	"agentrag/internal/generation"
	"agentrag/internal/generation/extractive"
	genopenai "agentrag/internal/generation/openai"
	"agentrag/internal/ingestion"
	"agentrag/internal/logger"
	"agentrag/internal/message"
	"agentrag/internal/retrieval"
	"agentrag/internal/vectorstore"
	"agentrag/internal/vectorstore/memory"
)

// App is a running agentic RAG instance.
type App struct {
	coord    *coordinator.Coordinator
	store    vectorstore.Storage
	embedder domain.Embedder
	workers  int

	mu sync.Mutex
	// ingested holds document names uploaded through IngestFiles, including in-flight ones.
	ingested map[string]struct{}
}

// Options override components built from config. Nil fields use the configured ones.
type Options struct {
	Embedder  domain.Embedder
	Generator domain.Generator
}

// New builds all components from cfg and starts the coordinator.
func New(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	emb := opts.Embedder
	if emb == nil {
		var err error
		if emb, err = newEmbedder(cfg.Embedder); err != nil {
			return nil, err
		}
	}
	gen := opts.Generator
	if gen == nil {
		var err error
		if gen, err = newGenerator(cfg.Generation); err != nil {
			return nil, err
		}
	}
	ch, err := chunker.NewWindowChunker(cfg.Chunker.Window, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	store := memory.NewStorage()
	r := cfg.Generation.Retry
	coord := coordinator.New(coordinator.Config{
		MaxInFlight:  cfg.Coordinator.MaxInFlight,
		TraceTimeout: cfg.TraceTimeout(),
	}, coordinator.Deps{
		Pipeline:  ingestion.NewPipeline(extract.NewRegistry(), ch),
		Indexer:   ingestion.NewIndexer(emb, store),
		Retriever: retrieval.NewEngine(emb, store, cfg.Retrieval.TopK),
		Generator: generation.NewAdapter(gen, generation.RetryConfig{
			MaxAttempts:  r.MaxAttempts,
			InitialDelay: time.Duration(r.InitialDelayMs) * time.Millisecond,
			MaxDelay:     time.Duration(r.MaxDelayMs) * time.Millisecond,
		}),
	})
	if err := coord.Start(ctx); err != nil {
		return nil, err
	}
	logger.Infow("app ready", "embedder", emb.Name(), "generator", cfg.Generation.Type,
		"window", cfg.Chunker.Window, "overlap", cfg.Chunker.Overlap, "top_k", cfg.Retrieval.TopK)

	return &App{
		coord:    coord,
		store:    store,
		embedder: emb,
		workers:  cfg.Ingest.Workers,
		ingested: make(map[string]struct{}),
	}, nil
}

// Upload indexes one in-memory document.
func (a *App) Upload(ctx context.Context, name string, docType domain.DocumentType, data []byte) (*coordinator.UploadResult, error) {
	return a.coord.Upload(ctx, name, docType, data)
}

// Ask answers a question from the indexed documents.
func (a *App) Ask(ctx context.Context, question string) (*message.FinalAnswer, error) {
	return a.coord.Query(ctx, question)
}

// Transcript returns every message routed so far.
func (a *App) Transcript() []message.Message { return a.coord.Transcript() }

// Indexed returns the number of chunks in the index.
func (a *App) Indexed() int { return a.store.Len() }

// EmbedderName identifies the embedding model behind the index.
func (a *App) EmbedderName() string { return a.embedder.Name() }

func (a *App) Close() error { return a.coord.Close() }

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Dimension:         cfg.OpenAI.Dimension,
			BatchSize:         cfg.OpenAI.BatchSize,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newGenerator(cfg config.GenerationConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "extractive", "":
		return extractive.New(cfg.MaxSentences), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generation config missing")
		}
		client, err := genopenai.NewClient(genopenai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Temperature:       cfg.OpenAI.Temperature,
			MaxTokens:         cfg.OpenAI.MaxTokens,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}
