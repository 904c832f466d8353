package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"research/internal/config"
	"research/sdk/research"
)

type tuiState int

const (
	stateIdle tuiState = iota
	stateStreaming
	stateVerifying
)

// Stream events forwarded into the Bubbletea loop.
type (
	agentStatusMsg struct {
		node, status string
	}
	answerChunkMsg  struct{ text string }
	thoughtChunkMsg struct{ text string }
	sourcesMsg      struct{ sources []research.Source }
	completeMsg     struct{ ev research.CompleteEvent }
	streamErrMsg    struct{ message string }

	// streamEndMsg is returned by the streaming command itself once Ask
	// returns, whatever the outcome.
	streamEndMsg struct {
		session *research.Session
		err     error
	}

	chatReadyMsg    struct{ chatID string }
	verificationMsg struct{ result research.VerificationResult }
	verifyDoneMsg   struct{ err error }
)

// sharedState carries the program handle into command goroutines, which
// need it to push events back into the update loop.
type sharedState struct {
	mu      sync.Mutex
	program *tea.Program
}

func (s *sharedState) setProgram(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

func (s *sharedState) getProgram() *tea.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// programObserver forwards SDK stream callbacks as Bubbletea messages.
type programObserver struct {
	research.NoopObserver
	p *tea.Program
}

func (o *programObserver) OnAgentStatus(node, status string) {
	o.p.Send(agentStatusMsg{node: node, status: status})
}

func (o *programObserver) OnAnswerChunk(text string) {
	o.p.Send(answerChunkMsg{text: text})
}

func (o *programObserver) OnThoughtChunk(text string) {
	o.p.Send(thoughtChunkMsg{text: text})
}

func (o *programObserver) OnSources(sources []research.Source) {
	o.p.Send(sourcesMsg{sources: sources})
}

func (o *programObserver) OnComplete(ev research.CompleteEvent) {
	o.p.Send(completeMsg{ev: ev})
}

func (o *programObserver) OnError(message string) {
	o.p.Send(streamErrMsg{message: message})
}

type tuiModel struct {
	client *research.Client
	cfg    *config.Config
	shared *sharedState

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	state     tuiState
	chatID    string
	lastQuery string

	// Accumulated display state for the in-flight exchange.
	answer       string
	thinking     string
	currentAgent string
	activity     []research.ActivityEntry
	sources      []research.Source
	confidence   string
	latencyMS    int
	messageID    string
	verification *research.VerificationResult
	errText      string

	segmenter *research.Segmenter

	history []exchange

	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int
	ready  bool
}

// exchange is one finished question/answer pair kept in the scrollback.
type exchange struct {
	query  string
	answer string
}

func newTUIModel(client *research.Client, cfg *config.Config) *tuiModel {
	ti := textinput.New()
	ti.Placeholder = "Ask a research question..."
	ti.Focus()
	ti.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	minStable := cfg.Stream.MinStable
	if minStable <= 0 {
		minStable = research.DefaultMinStable
	}

	return &tuiModel{
		client:    client,
		cfg:       cfg,
		shared:    &sharedState{},
		input:     ti,
		spinner:   sp,
		segmenter: &research.Segmenter{MinStable: minStable},
		state:     stateIdle,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatHeight := msg.Height - 7
		if chatHeight < 5 {
			chatHeight = 5
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, chatHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = chatHeight
		}
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.state != stateIdle && m.cancel != nil {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit

		case "esc":
			if m.state != stateIdle && m.cancel != nil {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			if m.state == stateIdle && m.input.Value() != "" {
				return m.startQuery(m.input.Value())
			}
		}

	case chatReadyMsg:
		m.chatID = msg.chatID
		return m, nil

	case agentStatusMsg:
		switch msg.status {
		case research.AgentRunning:
			m.currentAgent = msg.node
		case research.AgentComplete:
			m.currentAgent = ""
			m.activity = append(m.activity, research.ActivityEntry{
				Agent:  msg.node,
				Status: msg.status,
			})
		}
		return m, nil

	case answerChunkMsg:
		m.answer += msg.text
		m.refreshViewport()
		return m, nil

	case thoughtChunkMsg:
		m.thinking += msg.text
		m.refreshViewport()
		return m, nil

	case sourcesMsg:
		m.sources = append(m.sources, msg.sources...)
		m.refreshViewport()
		return m, nil

	case completeMsg:
		m.confidence = msg.ev.Confidence
		m.latencyMS = msg.ev.TotalLatencyMS
		m.messageID = msg.ev.MessageID
		if len(msg.ev.Sources) > 0 {
			m.sources = msg.ev.Sources
		}
		m.refreshViewport()
		return m, nil

	case streamErrMsg:
		m.errText = msg.message
		m.refreshViewport()
		return m, nil

	case streamEndMsg:
		if msg.err != nil && m.errText == "" && !errors.Is(msg.err, context.Canceled) {
			m.errText = msg.err.Error()
		}
		m.refreshViewport()
		if msg.session != nil && msg.session.MessageID != "" {
			m.messageID = msg.session.MessageID
		}
		if m.errText == "" && m.messageID != "" {
			m.state = stateVerifying
			m.input.Focus()
			return m, m.startVerification()
		}
		m.state = stateIdle
		m.input.Focus()
		return m, nil

	case verificationMsg:
		result := msg.result
		m.verification = &result
		return m, nil

	case verifyDoneMsg:
		m.state = stateIdle
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// startQuery archives the previous exchange, resets the live display state
// and launches the streaming command.
func (m *tuiModel) startQuery(query string) (tea.Model, tea.Cmd) {
	if m.answer != "" {
		m.history = append(m.history, exchange{query: m.lastQuery, answer: m.answer})
	}
	m.lastQuery = query
	m.answer = ""
	m.thinking = ""
	m.currentAgent = ""
	m.activity = nil
	m.sources = nil
	m.confidence = ""
	m.latencyMS = 0
	m.messageID = ""
	m.verification = nil
	m.errText = ""
	m.segmenter.Reset()

	m.input.SetValue("")
	m.input.Blur()
	m.state = stateStreaming
	m.refreshViewport()

	m.ctx, m.cancel = context.WithCancel(context.Background())
	ctx := m.ctx

	return m, tea.Batch(m.spinner.Tick, m.streamCmd(ctx, query))
}

// streamCmd runs the whole exchange in a command goroutine: chat creation
// when needed, then Ask with an observer that pushes events into the loop.
func (m *tuiModel) streamCmd(ctx context.Context, query string) tea.Cmd {
	client := m.client
	chatID := m.chatID
	useWeb := true
	shared := m.shared

	return func() tea.Msg {
		p := shared.getProgram()

		if chatID == "" {
			chat, err := client.CreateChat(ctx, nil)
			if err != nil {
				return streamEndMsg{err: fmt.Errorf("create chat: %w", err)}
			}
			chatID = chat.ID
			p.Send(chatReadyMsg{chatID: chatID})
		}

		sess, err := client.Ask(ctx, chatID, &research.QueryRequest{
			Query:  query,
			UseWeb: useWeb,
		}, &programObserver{p: p})

		return streamEndMsg{session: sess, err: err}
	}
}

// startVerification polls for the verification result of the finished
// message in the background.
func (m *tuiModel) startVerification() tea.Cmd {
	client := m.client
	chatID := m.chatID
	messageID := m.messageID
	shared := m.shared

	// Unset config fields keep the default schedule rather than zeroing it.
	policy := research.DefaultRetryPolicy
	if v := m.cfg.Verification; v.Initial.Duration > 0 {
		policy.Initial = v.Initial.Duration
		if v.Max.Duration > 0 {
			policy.Max = v.Max.Duration
		}
		if v.DoubleFor > 0 {
			policy.DoubleFor = v.DoubleFor
		}
	}

	ctx := m.ctx

	return func() tea.Msg {
		p := shared.getProgram()
		poller := &research.VerificationPoller{Client: client, Policy: policy}

		err := poller.Poll(ctx, chatID, messageID, func(r research.VerificationResult) {
			p.Send(verificationMsg{result: r})
		})
		return verifyDoneMsg{err: err}
	}
}
