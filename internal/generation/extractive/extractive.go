// Package extractive answers queries offline by quoting the context sentences
// that best match the query.
package extractive

import (
	"context"
	"strings"

	"agentrag/internal/domain"
	"agentrag/internal/summarizer"
)

var _ domain.Generator = (*Generator)(nil)

const noAnswer = "I don't have enough information in the provided context to answer that."

type Generator struct {
	ranker       *summarizer.FrequencySummarizer
	maxSentences int
}

func New(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Generator{ranker: summarizer.NewFrequencySummarizer(), maxSentences: maxSentences}
}

// Generate returns up to maxSentences context sentences that mention query terms,
// in context order.
func (g *Generator) Generate(ctx context.Context, contexts []string, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	picked := g.ranker.Focused(strings.Join(contexts, "\n"), query, g.maxSentences)
	if len(picked) == 0 {
		return noAnswer, nil
	}
	return strings.Join(picked, " "), nil
}
