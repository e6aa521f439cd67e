package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/voxterm/voxterm/pkg/cli"
	"github.com/voxterm/voxterm/pkg/conversation"
	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/session"
)

// Messages from the session goroutines into the bubbletea loop.
type (
	statusMsg struct {
		status conversation.Status
		text   string
	}
	pendingUserMsg   struct{}
	resolveUserMsg   struct{ text string }
	discardUserMsg   struct{}
	userTurnMsg      struct{ turn history.Turn }
	assistantDelta   struct{ delta string }
	assistantEndMsg  struct{}
	assistantFinal   struct {
		turn      history.Turn
		usageLine string
	}
	voiceLockedMsg   bool
	muteChangedMsg   bool
	sessionClosedMsg struct{}
	sessionErrMsg    struct{ err error }
	micDeniedMsg     struct{ err error }
	connectDoneMsg   struct{ err error }
	logLineMsg       string
)

// uiBridge adapts the conversation view interface to bubbletea message
// passing. The router calls it from the event pump goroutine; every
// method forwards to the program, which serializes into Update.
type uiBridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func newUIBridge() *uiBridge { return &uiBridge{} }

// attach binds the bridge to a running program. Calls before attach are
// dropped; the session only starts from the model's Init, which runs
// after attach.
func (b *uiBridge) attach(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *uiBridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (b *uiBridge) ShowStatus(s conversation.Status, text string) {
	b.send(statusMsg{status: s, text: text})
}
func (b *uiBridge) ShowPendingUser()            { b.send(pendingUserMsg{}) }
func (b *uiBridge) ResolvePendingUser(t string) { b.send(resolveUserMsg{text: t}) }
func (b *uiBridge) DiscardPendingUser()         { b.send(discardUserMsg{}) }
func (b *uiBridge) ShowUserTurn(t history.Turn) { b.send(userTurnMsg{turn: t}) }
func (b *uiBridge) AppendAssistantDelta(d string) {
	b.send(assistantDelta{delta: d})
}
func (b *uiBridge) EndAssistantStream() { b.send(assistantEndMsg{}) }
func (b *uiBridge) FinalizeAssistantTurn(t history.Turn, usageLine string) {
	b.send(assistantFinal{turn: t, usageLine: usageLine})
}
func (b *uiBridge) SetVoiceLocked(locked bool) { b.send(voiceLockedMsg(locked)) }

// connectModel is the bubbletea model for the live session screen.
type connectModel struct {
	ctx  context.Context
	flow *session.Flow

	transcript []string
	pending    bool
	stream     string // assistant reply under construction
	status     string
	statusKind conversation.Status
	muted      bool
	closed     bool

	logWriter *cli.LogWriter
	logLines  []string

	input  textinput.Model
	styles cli.Styles
	width  int
	height int

	quitting bool
}

func newConnectModel(ctx context.Context, flow *session.Flow, logWriter *cli.LogWriter) connectModel {
	ti := textinput.New()
	ti.Placeholder = "type a message and press enter"
	ti.Prompt = "> "
	ti.Focus()

	return connectModel{
		ctx:       ctx,
		flow:      flow,
		status:    "Connecting",
		logWriter: logWriter,
		input:     ti,
		styles:    cli.NewStyles(cli.DefaultTheme),
	}
}

func (m connectModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.connect(),
		m.listenLogs(),
	)
}

func (m connectModel) connect() tea.Cmd {
	return func() tea.Msg {
		return connectDoneMsg{err: m.flow.Connect(m.ctx)}
	}
}

func (m connectModel) listenLogs() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-m.logWriter.Channel()
		if !ok {
			return nil
		}
		return logLineMsg(line)
	}
}

func (m connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyCtrlD:
			if muted, ok := m.flow.ToggleMute(); ok {
				m.muted = muted
			}
			return m, nil
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			if text != "" {
				m.flow.SendText(m.ctx, text)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case connectDoneMsg:
		if msg.err != nil {
			m.statusKind = conversation.StatusError
			m.status = "Connect failed: " + msg.err.Error()
		}

	case statusMsg:
		m.statusKind = msg.status
		m.status = msg.text

	case pendingUserMsg:
		m.pending = true

	case resolveUserMsg:
		m.pending = false
		m.transcript = append(m.transcript, "you: "+msg.text)

	case discardUserMsg:
		m.pending = false

	case userTurnMsg:
		m.transcript = append(m.transcript, "you: "+msg.turn.Text)

	case assistantDelta:
		m.stream += msg.delta

	case assistantEndMsg:
		// Keep showing the streamed text until finalization replaces it.

	case assistantFinal:
		m.stream = ""
		m.transcript = append(m.transcript, "assistant: "+msg.turn.Text)
		if msg.usageLine != "" {
			m.transcript = append(m.transcript, "  "+msg.usageLine)
		}

	case voiceLockedMsg:
		// Voice selection is a config command; nothing to disable here.

	case muteChangedMsg:
		m.muted = bool(msg)

	case micDeniedMsg:
		m.statusKind = conversation.StatusError
		m.status = "Microphone unavailable: " + msg.err.Error()

	case sessionErrMsg:
		m.statusKind = conversation.StatusError
		m.status = "Session error: " + msg.err.Error()

	case sessionClosedMsg:
		if !m.closed {
			m.closed = true
			m.flow.HandleClose(m.ctx)
			m.statusKind = conversation.StatusError
			m.status = "Disconnected"
		}

	case logLineMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > 50 {
			m.logLines = m.logLines[len(m.logLines)-50:]
		}
		cmds = append(cmds, m.listenLogs())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// conversationLines renders the committed transcript plus the transient
// bubbles.
func (m connectModel) conversationLines() []string {
	lines := append([]string(nil), m.transcript...)
	if m.pending {
		lines = append(lines, "you: …")
	}
	if m.stream != "" {
		lines = append(lines, "assistant: "+m.stream)
	}
	return lines
}

func (m connectModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	status := m.status
	if m.muted {
		status += " · muted"
	}

	frame := cli.Frame{
		Styles: m.styles,
		Title:  "VOXTERM",
		Status: status,
		Sections: []cli.Section{
			{Label: " Conversation", Content: m.conversationLines},
			{Label: " Log", Content: func() []string { return m.logLines }},
		},
		Help: "enter=send  ctrl+d=mute  ctrl+c=quit",
	}

	return fmt.Sprintf("%s\n%s", frame.Render(m.width, m.height-2), m.input.View())
}
