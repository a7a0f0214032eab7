package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = `Go channels connect goroutines. Channels can be buffered or unbuffered.
The garbage collector runs concurrently. A buffered channel has a capacity.
Lunch was served at noon.`

func TestSummarize_KeepsOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	got, err := s.Summarize(article, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.NotContains(t, got, "Lunch")

	all, err := s.Summarize(article, 100)
	require.NoError(t, err)
	assert.Equal(t, "Go channels connect goroutines. Channels can be buffered or unbuffered. "+
		"The garbage collector runs concurrently. A buffered channel has a capacity. Lunch was served at noon.", all)
}

func TestSummarize_NoSentences(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("   ", 3)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestFocused(t *testing.T) {
	s := NewFrequencySummarizer()

	got := s.Focused(article, "What is the capacity of a buffered channel?", 1)
	assert.Equal(t, []string{"A buffered channel has a capacity."}, got)

	assert.Nil(t, s.Focused(article, "When does the opera start?", 3))
	assert.Nil(t, s.Focused(article, "what is the", 3))
}

func TestTerms(t *testing.T) {
	s := NewFrequencySummarizer()
	assert.Equal(t, []string{"revenue", "2024", "team's"}, s.Terms("What was the revenue in 2024 for the team's?"))
}
