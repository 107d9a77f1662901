package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Damdev80/chat-for-company-sub002/internal/chat"
	"github.com/Damdev80/chat-for-company-sub002/internal/engine"
)

const sidebarWidth = 32

// engineUpdateMsg wakes the UI; it re-reads state from the engine.
type engineUpdateMsg engine.Update

// Model is the terminal chat view: message viewport, input textarea,
// typing line, notification banner and a progress sidebar.
type Model struct {
	eng    *engine.Engine
	ctx    context.Context
	styles *Styles

	viewport viewport.Model
	input    textarea.Model

	width  int
	height int
	ready  bool

	lastFailedID string // most recent failed send, retry target
}

func NewModel(ctx context.Context, eng *engine.Engine) Model {
	ta := textarea.New()
	ta.Placeholder = "Message…"
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Focus()

	return Model{
		eng:    eng,
		ctx:    ctx,
		styles: DefaultStyles(),
		input:  ta,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForUpdate())
}

// waitForUpdate blocks on the engine's wake-up feed.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.eng.Updates()
		if !ok {
			return nil
		}
		return engineUpdateMsg(u)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatWidth := m.width - sidebarWidth
		if chatWidth < 20 {
			chatWidth = m.width
		}
		vpHeight := m.height - m.input.Height() - 4
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(chatWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = chatWidth
			m.viewport.Height = vpHeight
		}
		m.input.SetWidth(chatWidth - 2)
		m.refreshViewport()

	case engineUpdateMsg:
		if msg.Kind == engine.UpdateMessages {
			m.trackFailed()
		}
		m.refreshViewport()
		cmds = append(cmds, m.waitForUpdate())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			text := m.input.Value()
			m.input.Reset()
			m.eng.Send(m.ctx, text)
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, tea.Batch(cmds...)
		case "esc":
			m.eng.DismissNotification()
			return m, tea.Batch(cmds...)
		case "ctrl+g":
			m.cycleChannel()
			return m, tea.Batch(cmds...)
		case "ctrl+r":
			if m.lastFailedID != "" {
				m.eng.RetrySend(m.ctx, m.lastFailedID)
			}
			return m, tea.Batch(cmds...)
		default:
			before := m.input.Value()
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
			if m.input.Value() != before {
				m.eng.TypingInput(m.ctx)
			}
			return m, tea.Batch(cmds...)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// cycleChannel moves the active channel to the next group in the list.
func (m *Model) cycleChannel() {
	groups := m.eng.Groups()
	if len(groups) == 0 {
		return
	}
	active := m.eng.Session().ActiveChannel()
	next := groups[0].ID
	for i, g := range groups {
		if g.ID == active {
			next = groups[(i+1)%len(groups)].ID
			break
		}
	}
	m.eng.SwitchChannel(m.ctx, next)
}

// trackFailed remembers the newest failed entry so ctrl+r has a target.
func (m *Model) trackFailed() {
	m.lastFailedID = ""
	for _, msg := range m.eng.Messages() {
		if msg.Lifecycle == chat.Failed {
			m.lastFailedID = msg.LocalID
		}
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMessages() string {
	msgs := m.eng.Messages()
	if len(msgs) == 0 {
		return m.styles.Timestamp.Render("No messages yet.")
	}
	own := m.eng.Session().Username()
	var b strings.Builder
	for _, msg := range msgs {
		sender := m.styles.Sender
		if msg.SenderName == own {
			sender = m.styles.OwnSender
		}
		line := fmt.Sprintf("%s %s %s",
			m.styles.Timestamp.Render(msg.CreatedAt.Local().Format("15:04")),
			sender.Render(msg.SenderName+":"),
			msg.Content,
		)
		switch msg.Lifecycle {
		case chat.Pending:
			line += m.styles.Pending.Render(" ◌ sending")
		case chat.Failed:
			line += m.styles.Failed.Render(" ✗ failed (ctrl+r to retry)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}

	header := m.renderHeader()
	typingLine := " "
	if active, who := m.eng.Typing(); active {
		typingLine = m.styles.TypingLine.Render(who + " is typing…")
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		typingLine,
		m.input.View(),
		m.renderStatusBar(),
	)

	if m.width-sidebarWidth < 20 {
		return left
	}
	sidebar := m.styles.Sidebar.Width(sidebarWidth - 2).Height(m.height - 1).Render(m.renderSidebar())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sidebar)
}

func (m Model) renderHeader() string {
	active := m.eng.Session().ActiveChannel()
	name := active
	for _, g := range m.eng.Groups() {
		if g.ID == active {
			name = g.Name
			break
		}
	}
	title := m.styles.Header.Render("# " + name)

	if n := m.eng.Notification(); n != nil {
		banner := m.styles.Notification.Render(n.Title + ": " + n.Message)
		return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", banner)
	}
	return title
}

func (m Model) renderStatusBar() string {
	state := m.eng.ConnState()
	conn := m.styles.ConnDown.Render("● " + state)
	if state == "connected" {
		conn = m.styles.ConnUp.Render("● connected")
	}
	help := m.styles.StatusBar.Render("  enter send · ctrl+g channel · esc dismiss · ctrl+c quit")
	return conn + help
}

func (m Model) renderSidebar() string {
	snap := m.eng.Progress()
	var b strings.Builder
	b.WriteString(m.styles.SidebarTitle.Render("Objectives"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Group progress: %d%%\n", snap.GroupPercent))
	b.WriteString(renderBar(snap.GroupPercent, sidebarWidth-6, m.styles))
	b.WriteString("\n\n")

	if snap.AllComplete {
		b.WriteString(m.styles.Banner.Render("All objectives completed!"))
		b.WriteString("\n\n")
	}

	for _, op := range snap.Objectives {
		b.WriteString(op.Objective.Title)
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %d/%d (%d%%)\n",
			renderBar(op.Progress.Percentage, sidebarWidth-14, m.styles),
			op.Progress.Completed, op.Progress.Total, op.Progress.Percentage))
	}
	if len(snap.Objectives) == 0 {
		b.WriteString(m.styles.Timestamp.Render("No objectives."))
	}
	return b.String()
}

func renderBar(percent, width int, s *Styles) string {
	if width < 4 {
		width = 4
	}
	filled := width * percent / 100
	return s.BarDone.Render(strings.Repeat("█", filled)) +
		s.BarTodo.Render(strings.Repeat("░", width-filled))
}
