// Package generation turns a RETRIEVAL_RESULT into a FINAL_ANSWER by calling a
// generation service with the retrieved context.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-retry"

	"agentrag/internal/domain"
	"agentrag/internal/logger"
	"agentrag/internal/message"
)

const (
	// InsufficientInformation answers queries for which nothing was retrieved.
	InsufficientInformation = "I don't have enough information in the provided documents to answer that question."
	// Apology replaces the answer when the generation service fails.
	Apology = "I apologize, but I encountered an error while generating the response."

	SystemPrompt = "You are a helpful assistant that answers questions based on provided context."
)

// BuildPrompt renders the user prompt sent to chat-style generation services.
func BuildPrompt(contexts []string, query string) string {
	return fmt.Sprintf("Given the following context:\n\n%s\n\nAnswer the following question: %s\n\n"+
		"If the answer is not in the context, state that you don't have enough information.",
		strings.Join(contexts, "\n"), query)
}

// Adapter wraps a generator with retry and the fallback answers.
type Adapter struct {
	generator domain.Generator
	retry     RetryConfig
}

func NewAdapter(generator domain.Generator, retry RetryConfig) *Adapter {
	return &Adapter{generator: generator, retry: retry}
}

// Handle never returns an error: generation failures produce the apology with
// no sources, and an empty context skips the generator entirely.
func (a *Adapter) Handle(ctx context.Context, in message.RetrievalResult) message.FinalAnswer {
	if len(in.RetrievedContext) == 0 {
		return message.FinalAnswer{
			Answer:        InsufficientInformation,
			SourceContext: []string{},
			OriginalQuery: in.Query,
		}
	}

	var answer string
	err := retryWithBackoff(ctx, a.retry, func(ctx context.Context) error {
		out, err := a.generator.Generate(ctx, in.RetrievedContext, in.Query)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return retry.RetryableError(fmt.Errorf("%w: empty answer", domain.ErrGeneration))
		}
		answer = out
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		logger.Warnw("generation failed", "query", in.Query, "error", err.Error())
		return message.FinalAnswer{
			Answer:        Apology,
			SourceContext: []string{},
			OriginalQuery: in.Query,
		}
	}

	sources := make([]string, len(in.SourceContextMetadata))
	copy(sources, in.SourceContextMetadata)
	return message.FinalAnswer{
		Answer:        strings.TrimSpace(answer),
		SourceContext: sources,
		OriginalQuery: in.Query,
	}
}
