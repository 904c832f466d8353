package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	queryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	stableStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	// The active tail is still subject to revision upstream, so it renders
	// dimmed until the segmenter freezes it.
	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	verifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m *tuiModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(m.viewport.View() + "\n")
	s.WriteString(inputBoxStyle.Width(m.width-2).Render(m.input.View()) + "\n")
	s.WriteString(m.renderStatusBar())

	return s.String()
}

// refreshViewport rebuilds the scrollback content and keeps it pinned to
// the bottom while an answer is streaming.
func (m *tuiModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m *tuiModel) renderConversation() string {
	var s strings.Builder

	for _, ex := range m.history {
		s.WriteString(queryStyle.Render("> "+ex.query) + "\n\n")
		s.WriteString(stableStyle.Render(ex.answer) + "\n\n")
	}

	if m.lastQuery != "" {
		s.WriteString(queryStyle.Render("> "+m.lastQuery) + "\n\n")
	}

	// Before the answer starts, show a window into the model's reasoning.
	if m.answer == "" && m.thinking != "" {
		tail := m.thinking
		if len(tail) > 500 {
			tail = tail[len(tail)-500:]
		}
		s.WriteString(activeStyle.Render(tail) + "\n\n")
	}

	if m.answer != "" {
		seg := m.segmenter.Split(m.answer)
		s.WriteString(stableStyle.Render(seg.Stable))
		s.WriteString(activeStyle.Render(seg.Active))
		s.WriteString("\n\n")
	}

	if len(m.sources) > 0 {
		s.WriteString(sourceStyle.Render("Sources:") + "\n")
		for i, src := range m.sources {
			line := fmt.Sprintf("  [%d] %s", i+1, src.Title)
			if src.URL != "" {
				line += "  " + src.URL
			}
			s.WriteString(sourceStyle.Render(line) + "\n")
		}
		s.WriteString("\n")
	}

	if m.errText != "" {
		s.WriteString(errStyle.Render("✗ "+m.errText) + "\n")
	}

	return s.String()
}

func (m *tuiModel) renderStatusBar() string {
	var left string

	switch m.state {
	case stateStreaming:
		agent := m.currentAgent
		if agent == "" {
			agent = "thinking"
		}
		left = m.spinner.View() + agentStyle.Render(" "+agent+"...")
	case stateVerifying:
		left = m.spinner.View() + statusStyle.Render(" verifying answer...")
	default:
		switch {
		case m.verification != nil:
			left = verifiedStyle.Render(fmt.Sprintf("✓ verified (%s)", m.verification.Confidence))
		case m.confidence != "":
			left = statusStyle.Render(fmt.Sprintf("confidence: %s · %dms", m.confidence, m.latencyMS))
		default:
			left = statusStyle.Render("ready")
		}
	}

	if len(m.activity) > 0 && m.state == stateStreaming {
		done := make([]string, 0, len(m.activity))
		for _, a := range m.activity {
			done = append(done, a.Agent)
		}
		left += statusStyle.Render("  done: " + strings.Join(done, ", "))
	}

	help := statusStyle.Render("enter: send · ctrl+c: cancel/quit")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + left + strings.Repeat(" ", gap) + help
}
