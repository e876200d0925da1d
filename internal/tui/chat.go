// Package tui is the interactive chat surface over the query pipeline.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newsrag/internal/domain"
	"newsrag/internal/session"
)

// QueryPort is the TUI-facing subset of the query pipeline.
type QueryPort interface {
	Query(ctx context.Context, userQuery string, topK int) *domain.QueryOutcome
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	querier   QueryPort
	sessions  *session.Store
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	status    string
	ready     bool
}

// New creates a chat model bound to one fresh session.
func New(querier QueryPort, sessions *session.Store) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the news and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		querier:   querier,
		sessions:  sessions,
		sessionID: sessions.Start(),
		input:     ti,
		viewport:  vp,
		status:    "Ready. Type a question.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.sessions.End(m.sessionID)
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.sessions.Append(m.sessionID, "user", q)
				outcome := m.querier.Query(context.Background(), q, 0)
				m.sessions.Append(m.sessionID, "assistant", renderOutcome(outcome))
				if outcome.IsInDomain {
					m.status = fmt.Sprintf("Answered from %d retrieved chunks.", outcome.RetrievedCount)
				} else {
					m.status = "No relevant articles for that one."
				}
				m.input.SetValue("")
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
				return m, nil
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("News Assistant")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	turns := m.sessions.History(m.sessionID)
	if len(turns) == 0 {
		return "No messages yet. Ask about a news topic."
	}
	var b strings.Builder
	for _, t := range turns {
		if t.Role == "user" {
			b.WriteString(userStyle.Render("You: ") + t.Text + "\n\n")
		} else {
			b.WriteString(assistantStyle.Render("Assistant: ") + t.Text + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOutcome(outcome *domain.QueryOutcome) string {
	if len(outcome.Sources) == 0 {
		return outcome.AnswerText
	}
	var b strings.Builder
	b.WriteString(outcome.AnswerText)
	b.WriteString("\n")
	for i, s := range outcome.Sources {
		fmt.Fprintf(&b, "\n  [%d] %s (score %.2f)", i+1, s.Title, s.Score)
		if s.URL != "" {
			b.WriteString("\n      " + s.URL)
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
