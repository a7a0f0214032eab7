package chunker

import (
	"fmt"

	"agentrag/internal/domain"
)

const (
	// DefaultWindow is the default number of characters per chunk.
	DefaultWindow = 1000
	// DefaultOverlap is the default number of characters shared by consecutive chunks.
	DefaultOverlap = 100
)

// WindowChunker splits text into fixed-size character windows with overlap.
type WindowChunker struct {
	window  int
	overlap int
}

// NewWindowChunker validates the parameters once so Split can never loop.
func NewWindowChunker(window, overlap int) (*WindowChunker, error) {
	if err := validate(window, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{window: window, overlap: overlap}, nil
}

// Window returns the configured window size.
func (c *WindowChunker) Window() int { return c.window }

// Overlap returns the configured overlap.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Split implements domain.Chunker.
func (c *WindowChunker) Split(text string) ([]string, error) {
	return Split(text, c.window, c.overlap)
}

// Split cuts text into windows starting at offsets 0, step, 2*step, ...
// where step = window - overlap. The last window may be shorter.
// Offsets are counted in runes.
func Split(text string, window, overlap int) ([]string, error) {
	if err := validate(window, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}
	step := window - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for offset := 0; offset < len(runes); offset += step {
		end := offset + window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[offset:end]))
	}
	return chunks, nil
}

// Offsets returns the rune offsets at which Split starts each window of a text of length n.
func Offsets(n, window, overlap int) ([]int, error) {
	if err := validate(window, overlap); err != nil {
		return nil, err
	}
	step := window - overlap
	offsets := make([]int, 0, (n+step-1)/step)
	for offset := 0; offset < n; offset += step {
		offsets = append(offsets, offset)
	}
	return offsets, nil
}

func validate(window, overlap int) error {
	if window <= 0 || overlap < 0 || overlap >= window {
		return fmt.Errorf("%w: window=%d overlap=%d", domain.ErrInvalidChunkingParameters, window, overlap)
	}
	return nil
}
