package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"autogen-chat/internal/chatclient"
	"autogen-chat/internal/domain"
)

const title = "AutoGen Chat"

type replyMsg struct {
	reply chatclient.Reply
	err   error
}

type model struct {
	ctx     context.Context
	send    SendFunc
	apiBase string

	session  *Session
	theme    theme
	spinner  spinner.Model
	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
	rendered int
}

func newModel(ctx context.Context, send SendFunc, apiBase string) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("222"))

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "Type a message..."
	in.CharLimit = 0
	in.Focus()

	m := &model{
		ctx:      ctx,
		send:     send,
		apiBase:  apiBase,
		session:  NewSession(),
		theme:    defaultTheme(),
		spinner:  spin,
		input:    in,
		viewport: viewport.New(80, 16),
		width:    84,
		height:   24,
	}
	m.resize()
	return m
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resize()
		m.refresh(true)
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "pgup":
			m.viewport.ViewUp()
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		case "enter":
			return m, m.submit()
		}
		if m.session.Loading() {
			return m, nil
		}
	case spinner.TickMsg:
		if !m.session.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case replyMsg:
		m.session.Resolve(typed.reply, typed.err)
		m.refresh(false)
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) submit() tea.Cmd {
	text, ok := m.session.Submit(m.input.Value())
	if !ok {
		return nil
	}
	m.input.SetValue("")
	m.input.Blur()
	m.refresh(false)
	return tea.Batch(m.spinner.Tick, sendCmd(m.ctx, m.send, text))
}

func sendCmd(ctx context.Context, send SendFunc, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := send(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m *model) View() string {
	header := m.theme.header.Width(m.width).Render(title)
	meta := m.theme.hint.Render("backend: " + m.apiBase)
	line := m.theme.divider.Render(strings.Repeat("─", max(8, m.width)))

	status := m.theme.status.Render("Enter send · PgUp/PgDn scroll · Ctrl+C/Esc quit")
	inputStyle := m.theme.input
	if m.session.Loading() {
		status = m.theme.statusBusy.Render(m.spinner.View() + " Sending...")
		inputStyle = m.theme.inputDisabled
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Render(m.viewport.View()),
		status,
		inputStyle.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resize() {
	w := max(30, m.width-4)
	h := max(6, m.height-10)
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
}

// refresh re-renders the conversation and jumps to the newest message
// whenever the list has grown since the last render.
func (m *model) refresh(force bool) {
	messages := m.session.Messages()
	sections := make([]string, 0, len(messages))
	for _, msg := range messages {
		sections = append(sections, m.renderMessage(msg))
	}
	m.viewport.SetContent(strings.Join(sections, "\n"))

	if force || len(messages) != m.rendered {
		m.viewport.GotoBottom()
	}
	m.rendered = len(messages)
}

func (m *model) renderMessage(msg domain.Message) string {
	bubbleWidth := max(20, m.viewport.Width*3/4)

	body := []string{msg.Content}
	if msg.ImageURL != "" {
		body = append(body, m.theme.media.Render("image: "+msg.ImageURL))
	}
	if msg.AudioURL != "" {
		body = append(body, m.theme.media.Render("audio: "+msg.AudioURL))
	}
	content := strings.Join(body, "\n")

	if msg.Role == domain.RoleUser {
		card := lipgloss.JoinVertical(lipgloss.Right,
			m.theme.userTitle.Render("You"),
			m.theme.userBox.Width(bubbleWidth).Render(content),
		)
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, card)
	}
	card := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.assistantTitle.Render("Assistant"),
		m.theme.assistantBox.Width(bubbleWidth).Render(content),
	)
	return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Left, card)
}
