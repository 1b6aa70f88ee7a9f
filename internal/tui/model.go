package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rag-agent/internal/chunker"
)

// RAGPort is the TUI-facing subset of the agent.
type RAGPort interface {
	Answer(ctx context.Context, query string) (string, error)
	Retrieve(ctx context.Context, query string) (string, error)
}

type exchange struct {
	question string
	answer   string
	context  string
	err      error
}

type answerMsg struct {
	question string
	answer   string
	err      error
}

type contextMsg struct {
	index int
	text  string
	err   error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx         context.Context
	service     RAGPort
	input       textinput.Model
	viewport    viewport.Model
	history     []exchange
	summary     string
	status      string
	pending     bool
	showContext bool
	ready       bool
}

// New creates a new chat model. summary is shown under the header.
func New(ctx context.Context, service RAGPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Tab shows the retrieved context.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered %q", msg.question)
		}
		m.refresh()
		if m.showContext && msg.err == nil {
			return m, m.fetchContext(len(m.history) - 1)
		}
		return m, nil
	case contextMsg:
		if msg.index < len(m.history) {
			if msg.err != nil {
				m.history[msg.index].context = "Error: " + msg.err.Error()
			} else {
				m.history[msg.index].context = msg.text
			}
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, m.ask(q)
		case "tab":
			m.showContext = !m.showContext
			m.refresh()
			last := len(m.history) - 1
			if m.showContext && last >= 0 && m.history[last].err == nil && m.history[last].context == "" {
				return m, m.fetchContext(last)
			}
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) ask(q string) tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		answer, err := svc.Answer(ctx, q)
		return answerMsg{question: q, answer: answer, err: err}
	}
}

func (m Model) fetchContext(i int) tea.Cmd {
	ctx, svc, q := m.ctx, m.service, m.history[i].question
	return func() tea.Msg {
		text, err := svc.Retrieve(ctx, q)
		return contextMsg{index: i, text: text, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render(ex.err.Error()))
			continue
		}
		b.WriteString(ex.answer)
		if m.showContext && i == len(m.history)-1 {
			b.WriteString("\n\n")
			b.WriteString(contextTitleStyle.Render("Retrieved context"))
			b.WriteString("\n")
			if ex.context == "" {
				b.WriteString("loading...")
			} else {
				b.WriteString(highlightBestLine(ex.context, ex.question))
			}
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	contextTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Underline(true)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
)

// highlightBestLine marks the line of text sharing the most words with query.
func highlightBestLine(text, query string) string {
	lines := chunker.Lines(text)
	if len(lines) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(lines, "\n")
	}
	bestIdx := 0
	bestScore := 0
	for i, l := range lines {
		if score := tokenOverlapScore(qTokens, l); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore > 0 {
		lines[bestIdx] = highlightStyle.Render(lines[bestIdx])
	}
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, line string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(line), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
