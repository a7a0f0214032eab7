package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrag/internal/message"
	"agentrag/internal/service"
)

type fakePort struct {
	asked    []string
	patterns []string
	askErr   error
	ingested map[string]bool
}

func (f *fakePort) Ask(_ context.Context, q string) (*message.FinalAnswer, error) {
	f.asked = append(f.asked, q)
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &message.FinalAnswer{
		Answer:        "It is 42.",
		SourceContext: []string{"Source: guide.md, Type: txt_md, Chunk ID: 3"},
		OriginalQuery: q,
	}, nil
}

func (f *fakePort) IngestFiles(_ context.Context, patterns []string) ([]service.FileResult, error) {
	f.patterns = append(f.patterns, patterns...)
	if f.ingested == nil {
		f.ingested = map[string]bool{}
	}
	res := service.FileResult{Path: "new.txt", ChunkIDs: []int{7, 8}}
	if f.ingested[res.Path] {
		res = service.FileResult{Path: res.Path, Skipped: true}
	}
	f.ingested[res.Path] = true
	return []service.FileResult{res}, nil
}

func typeAndSubmit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestAskRoundTrip(t *testing.T) {
	port := &fakePort{}
	m := sized(New(context.Background(), port, []service.FileResult{{Path: "guide.md", ChunkIDs: []int{0, 1, 2, 3}}}))
	assert.Contains(t, m.View(), "guide.md (4 chunks)")

	m, cmd := typeAndSubmit(t, m, "meaning of life?")
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Equal(t, "", m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.pending)
	assert.Equal(t, []string{"meaning of life?"}, port.asked)
	require.Len(t, m.history, 1)
	view := m.renderHistory()
	assert.Contains(t, view, "It is 42.")
	assert.Contains(t, view, "Source: guide.md, Type: txt_md, Chunk ID: 3")
}

func TestAskError(t *testing.T) {
	port := &fakePort{askErr: errors.New("coordinator is not running")}
	m := sized(New(context.Background(), port, nil))
	m, cmd := typeAndSubmit(t, m, "hello")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Contains(t, m.status, "coordinator is not running")
	assert.Contains(t, m.renderHistory(), "Error:")
}

func TestAddCommand(t *testing.T) {
	port := &fakePort{}
	m := sized(New(context.Background(), port, nil))
	assert.Contains(t, m.View(), "No documents loaded.")

	m, cmd := typeAndSubmit(t, m, "/add docs/*.md notes.txt")
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, []string{"docs/*.md", "notes.txt"}, port.patterns)
	assert.Empty(t, port.asked)
	assert.Contains(t, m.renderFiles(), "new.txt (2 chunks)")

	m, cmd = typeAndSubmit(t, m, "/add notes.txt")
	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Len(t, m.files, 1)
	assert.Equal(t, "Ingested 0 file(s), 1 already loaded", m.status)
}

func TestEnterIgnoredWhilePending(t *testing.T) {
	m := sized(New(context.Background(), &fakePort{}, nil))
	m, _ = typeAndSubmit(t, m, "first")
	_, cmd := typeAndSubmit(t, m, "second")
	assert.Nil(t, cmd)
}
