package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrag/internal/message"
)

type scriptedGenerator struct {
	answers []string
	errs    []error
	calls   int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ []string, _ string) (string, error) {
	i := g.calls
	g.calls++
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(g.answers) {
		return g.answers[i], nil
	}
	return "", nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func retrieval() message.RetrievalResult {
	return message.RetrievalResult{
		RetrievedContext:      []string{"Paris is the capital of France."},
		SourceContextMetadata: []string{"Source: geo.txt, Type: txt_md, Chunk ID: 4"},
		Query:                 "What is the capital of France?",
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt([]string{"one", "two"}, "why?")
	assert.Equal(t, "Given the following context:\n\none\ntwo\n\nAnswer the following question: why?\n\n"+
		"If the answer is not in the context, state that you don't have enough information.", got)
}

func TestHandle_EmptyContextSkipsGenerator(t *testing.T) {
	gen := &scriptedGenerator{}
	out := NewAdapter(gen, fastRetry()).Handle(context.Background(), message.RetrievalResult{Query: "q"})
	assert.Equal(t, InsufficientInformation, out.Answer)
	assert.Empty(t, out.SourceContext)
	assert.Equal(t, "q", out.OriginalQuery)
	assert.Zero(t, gen.calls)
	assert.NoError(t, out.Validate())
}

func TestHandle_Success(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{"  Paris.  "}}
	in := retrieval()
	out := NewAdapter(gen, fastRetry()).Handle(context.Background(), in)
	assert.Equal(t, "Paris.", out.Answer)
	assert.Equal(t, in.SourceContextMetadata, out.SourceContext)
	assert.Equal(t, in.Query, out.OriginalQuery)
}

func TestHandle_RetriesTransientFailures(t *testing.T) {
	gen := &scriptedGenerator{
		errs:    []error{retry.RetryableError(errors.New("503")), retry.RetryableError(errors.New("timeout")), nil},
		answers: []string{"", "", "Paris."},
	}
	out := NewAdapter(gen, fastRetry()).Handle(context.Background(), retrieval())
	assert.Equal(t, "Paris.", out.Answer)
	assert.Equal(t, 3, gen.calls)
}

func TestHandle_ApologyOnFailure(t *testing.T) {
	tests := []struct {
		name      string
		gen       *scriptedGenerator
		wantCalls int
	}{
		{"exhausted", &scriptedGenerator{errs: []error{
			retry.RetryableError(errors.New("a")),
			retry.RetryableError(errors.New("b")),
			retry.RetryableError(errors.New("c")),
		}}, 3},
		{"unmarked error is final", &scriptedGenerator{errs: []error{errors.New("401")}}, 1},
		{"blank answers", &scriptedGenerator{answers: []string{" ", "", "\n"}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewAdapter(tt.gen, fastRetry()).Handle(context.Background(), retrieval())
			assert.Equal(t, Apology, out.Answer)
			assert.Empty(t, out.SourceContext)
			assert.Equal(t, tt.wantCalls, tt.gen.calls)
		})
	}
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return retry.RetryableError(errors.New("flaky"))
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_CustomPredicate(t *testing.T) {
	cfg := fastRetry()
	cfg.Retryable = func(err error) bool { return strings.Contains(err.Error(), "retry") }

	calls := 0
	err := retryWithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("fatal")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = retryWithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("please retry")
	})
	assert.ErrorContains(t, err, "max retry attempts (3) reached")
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_ContextErrorsAreFinal(t *testing.T) {
	cfg := fastRetry()
	cfg.Retryable = func(error) bool { return true }
	calls := 0
	err := retryWithBackoff(context.Background(), cfg, func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestRetryConfig_Backoff(t *testing.T) {
	b := RetryConfig{MaxAttempts: 4, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}.backoff()
	var delays []time.Duration
	for {
		d, stop := b.Next()
		if stop {
			break
		}
		delays = append(delays, d)
	}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, delays)
}

func TestRetryConfig_Defaults(t *testing.T) {
	c := RetryConfig{}.withDefaults()
	assert.Equal(t, 3, c.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, c.InitialDelay)
	assert.Equal(t, 10*time.Second, c.MaxDelay)
}
