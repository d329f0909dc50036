package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ronit111/documind/chat"
	"github.com/ronit111/documind/types"
)

// streamEventMsg carries one relayed event into the update loop.
type streamEventMsg struct {
	turnID string
	ev     types.StreamEvent
}

// relayDoneMsg reports that the relay for a turn returned.
type relayDoneMsg struct {
	turnID string
	cause  error
}

// ChatModel is the interactive conversation view. The model's update loop
// is the only goroutine that touches the conversation; relay goroutines
// only forward events.
type ChatModel struct {
	ctx     context.Context
	session *chat.Session

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	active *chat.ActiveTurn
	events <-chan tea.Msg
	cancel context.CancelFunc

	notice   string
	hint     string
	width    int
	ready    bool
	quitting bool
}

// ChatOption configures a ChatModel.
type ChatOption func(*ChatModel)

// WithHint shows an informational line while the conversation is empty.
func WithHint(hint string) ChatOption {
	return func(m *ChatModel) { m.hint = hint }
}

// NewChatModel creates a chat view over session.
func NewChatModel(ctx context.Context, session *chat.Session, opts ...ChatOption) ChatModel {
	in := textinput.New()
	in.Placeholder = "Ask a question about your documents"
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarningStyle

	m := ChatModel{
		ctx:      ctx,
		session:  session,
		input:    in,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		width:    80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-5, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.stopTurn()
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Clear):
			m.stopTurn()
			m.session.Conversation().Clear()
			m.notice = ""
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Send):
			return m.submit()
		}

	case streamEventMsg:
		if m.active == nil || msg.turnID != m.active.AssistantID {
			return m, nil
		}
		if m.session.Apply(m.active, msg.ev) {
			m.refresh()
		}
		return m, waitRelay(m.events)

	case relayDoneMsg:
		if m.active == nil || msg.turnID != m.active.AssistantID {
			return m, nil
		}
		_, transcript, err := m.session.Finish(m.active, msg.cause)
		m.active = nil
		m.cancel = nil
		var turnErr *chat.TurnError
		if errors.As(err, &turnErr) {
			m.notice = "turn failed: " + turnErr.Detail
		}
		m.refresh()
		return m, m.record(transcript)

	case spinner.TickMsg:
		if m.active == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var inputCmd, viewCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewCmd)
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	if m.active != nil {
		m.notice = "still answering the previous question"
		return m, nil
	}
	active, err := m.session.Begin(m.input.Value())
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			return m, nil
		}
		m.notice = err.Error()
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.active = active
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.events = startRelay(m.ctx, ctx, m.session.Streamer(), active)
	m.refresh()
	return m, tea.Batch(waitRelay(m.events), m.spinner.Tick)
}

// stopTurn cancels the running relay. The relay still reports completion,
// which settles the turn with a synthesized error.
func (m *ChatModel) stopTurn() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m ChatModel) record(turn types.TranscriptTurn) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		session.Record(ctx, turn)
		return nil
	}
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(renderConversation(m.session.Conversation().Messages(), m.spinner.View(), m.width))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("DocuMind"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.notice))
	} else if m.hint != "" && m.session.Conversation().Len() == 0 {
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render(m.hint))
	}
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("enter send · ctrl+l clear · esc quit"))
	return b.String()
}

// startRelay runs the turn's stream on its own goroutine and forwards every
// event, then a relayDoneMsg, on the returned channel. Ordinary events stop
// flowing once turnCtx is done. The terminal event and the done message are
// held back only by parent, so a stopped turn still settles.
func startRelay(parent, turnCtx context.Context, streamer chat.Streamer, t *chat.ActiveTurn) <-chan tea.Msg {
	ch := make(chan tea.Msg, 16)
	go func() {
		defer close(ch)
		cause := chat.Relay(turnCtx, streamer, t.Request, func(ev types.StreamEvent) {
			stop := turnCtx.Done()
			if types.IsTerminalEvent(ev) {
				stop = parent.Done()
			}
			select {
			case ch <- streamEventMsg{turnID: t.AssistantID, ev: ev}:
			case <-stop:
			}
		})
		select {
		case ch <- relayDoneMsg{turnID: t.AssistantID, cause: cause}:
		case <-parent.Done():
		}
	}()
	return ch
}

func waitRelay(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// renderConversation lays out messages for the viewport.
func renderConversation(msgs []types.ConversationMessage, spin string, width int) string {
	if len(msgs) == 0 {
		return MutedStyle.Render("No messages yet. Ask something about your documents.")
	}
	body := lipgloss.NewStyle().Width(max(width-2, 20))

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == types.RoleUser {
			b.WriteString(UserStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(body.Render(msg.Content))
			continue
		}

		b.WriteString(AssistantStyle.Render("DocuMind"))
		if msg.Streaming {
			b.WriteString(" " + spin)
		}
		b.WriteString("\n")
		switch {
		case chat.IsErrorContent(msg.Content):
			b.WriteString(ErrorStyle.Render(msg.Content))
		case msg.Content == "" && msg.Streaming:
			b.WriteString(MutedStyle.Render("thinking..."))
		default:
			b.WriteString(body.Render(msg.Content))
		}
		for j, src := range msg.Sources {
			line := fmt.Sprintf("[%d] %s", j+1, src.DocumentName)
			if src.SectionRef != nil && *src.SectionRef != "" {
				line += " · " + *src.SectionRef
			}
			line += fmt.Sprintf(" · %.0f%%", src.RelevanceScore*100)
			b.WriteString("\n" + MutedStyle.Render(line))
		}
	}
	return b.String()
}

// RunChat runs the chat view until the user quits.
func RunChat(ctx context.Context, session *chat.Session, opts ...ChatOption) error {
	p := tea.NewProgram(NewChatModel(ctx, session, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
