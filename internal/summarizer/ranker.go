package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"agentrag/internal/domain"
)

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// DefaultSentences is used when a caller asks for maxSentences <= 0.
const DefaultSentences = 5

var sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered),
// optionally boosted by overlap with a query.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	queryWeight  float64
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
		queryWeight:  2,
	}
}

type sentence struct {
	text   string
	tokens []string
}

// Summarize returns the maxSentences highest-scoring sentences in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	picked := s.rank(text, nil, maxSentences)
	if picked == nil {
		return strings.TrimSpace(text), nil
	}
	return strings.Join(picked, " "), nil
}

// Focused is Summarize with sentences that mention query terms ranked first.
// It returns nil when no sentence shares a content word with the query.
func (s *FrequencySummarizer) Focused(text, query string, maxSentences int) []string {
	terms := map[string]struct{}{}
	for _, tok := range s.Terms(query) {
		terms[tok] = struct{}{}
	}
	if len(terms) == 0 {
		return nil
	}
	return s.rank(text, terms, maxSentences)
}

// Terms returns the lower-cased content words of text.
func (s *FrequencySummarizer) Terms(text string) []string {
	var out []string
	for _, tok := range s.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func (s *FrequencySummarizer) rank(text string, query map[string]struct{}, maxSentences int) []string {
	if maxSentences <= 0 {
		maxSentences = DefaultSentences
	}
	var sentences []sentence
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		sentences = append(sentences, sentence{text: t, tokens: s.Terms(t)})
	}
	if len(sentences) == 0 {
		return nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range sent.tokens {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
		hits  int
	}
	scores := make([]scored, 0, len(sentences))
	for i, sent := range sentences {
		sc := scored{idx: i}
		for _, tok := range sent.tokens {
			sc.score += freq[tok] / maxF
			if _, ok := query[tok]; ok {
				sc.hits++
			}
		}
		if n := len(sent.tokens); n > 0 {
			sc.score /= math.Sqrt(float64(n))
		}
		sc.score += s.queryWeight * float64(sc.hits)
		if query != nil && sc.hits == 0 {
			continue
		}
		scores = append(scores, sc)
	}
	if len(scores) == 0 {
		return nil
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx].text
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "how", "why", "when", "where", "does", "do", "did", "has", "have", "had", "i", "you", "me", "my", "tell",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
