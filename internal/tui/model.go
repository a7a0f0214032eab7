package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentrag/internal/message"
	"agentrag/internal/service"
)

// Port is the TUI-facing subset of the app.
type Port interface {
	Ask(ctx context.Context, question string) (*message.FinalAnswer, error)
	IngestFiles(ctx context.Context, patterns []string) ([]service.FileResult, error)
}

type turn struct {
	question string
	answer   string
	sources  []string
	err      error
}

type answerMsg struct {
	turn turn
}

type ingestMsg struct {
	results []service.FileResult
	err     error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx      context.Context
	app      Port
	input    textinput.Model
	viewport viewport.Model
	history  []turn
	files    []service.FileResult
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. files lists documents ingested before startup.
func New(ctx context.Context, app Port, files []service.FileResult) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /add <path|glob>"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		app:      app,
		input:    ti,
		viewport: viewport.New(0, 0),
		files:    files,
		status:   "Ready. Enter sends, Ctrl+C quits.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, hh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// header, files line, status, spacer
		reserved := 4 + qh + hh
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = false
		m.history = append(m.history, msg.turn)
		if msg.turn.err != nil {
			m.status = "Error: " + msg.turn.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered %q", msg.turn.question)
		}
		m.refresh()
		return m, nil

	case ingestMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		added, skipped := 0, 0
		for _, r := range msg.results {
			if r.Skipped {
				skipped++
				continue
			}
			m.files = append(m.files, r)
			added++
		}
		m.status = fmt.Sprintf("Ingested %d file(s)", added)
		if skipped > 0 {
			m.status += fmt.Sprintf(", %d already loaded", skipped)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.pending {
				return m, nil
			}
			m.input.SetValue("")
			m.pending = true
			if rest, ok := strings.CutPrefix(text, "/add "); ok {
				m.status = "Ingesting..."
				return m, m.ingest(strings.Fields(rest))
			}
			m.status = "Thinking..."
			return m, m.ask(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.app.Ask(m.ctx, question)
		t := turn{question: question, err: err}
		if err == nil {
			t.answer, t.sources = ans.Answer, ans.SourceContext
		}
		return answerMsg{turn: t}
	}
}

func (m Model) ingest(patterns []string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.app.IngestFiles(m.ctx, patterns)
		return ingestMsg{results: res, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Agentic RAG Chat")
	files := dimStyle.Render(m.renderFiles())
	history := historyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + files + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderFiles() string {
	if len(m.files) == 0 {
		return "No documents loaded."
	}
	parts := make([]string, 0, len(m.files))
	for _, f := range m.files {
		if f.Err != nil {
			parts = append(parts, f.Path+" (failed)")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%d chunks)", f.Path, len(f.ChunkIDs)))
	}
	return "Documents: " + strings.Join(parts, ", ")
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + t.question))
		b.WriteString("\n")
		if t.err != nil {
			b.WriteString(errorStyle.Render("Error: " + t.err.Error()))
			continue
		}
		b.WriteString(t.answer)
		for _, s := range t.sources {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render("  " + s))
		}
	}
	return b.String()
}

var (
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
