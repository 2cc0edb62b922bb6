// Package tui renders the chat from the reconciler's local view: a
// conversation sidebar, a thread pane with the reveal animation, a
// composer and a connection status footer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ivanskieee/lantern/internal/client"
	"github.com/ivanskieee/lantern/internal/domain"
)

const (
	sidebarWidth   = 28
	requestTimeout = 60 * time.Second
)

// RefreshMsg asks for a re-render after the reconciler's state changed.
type RefreshMsg struct{}

// StatusMsg carries a connection status transition.
type StatusMsg struct {
	Status client.Status
}

type sendResultMsg struct {
	prompt domain.Prompt
	err    error
}

type deleteResultMsg struct {
	id  int64
	err error
}

type Model struct {
	api *client.APIClient
	rec *client.Reconciler

	convCursor int
	active     *int64 // nil while composing a new conversation
	composer   textinput.Model
	composing  bool
	sending    bool

	status   client.Status
	lastErr  string
	width    int
	height   int
	quitting bool
}

func NewModel(api *client.APIClient, rec *client.Reconciler) Model {
	ci := textinput.New()
	ci.Placeholder = "type a message..."
	ci.CharLimit = 2000

	return Model{
		api:      api,
		rec:      rec,
		composer: ci,
		status:   rec.Status(),
		width:    120,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RefreshMsg:
		m.clampCursor()
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		m.rec.AcknowledgeCreated(msg.prompt)
		m.active = &msg.prompt.ConversationID
		m.convCursor = 0
		return m, nil

	case deleteResultMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		m.rec.AcknowledgeDeleted(msg.id)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			return m.updateCompose(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	conversations := m.rec.Conversations()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.convCursor > 0 {
			m.convCursor--
		}
		m.selectConversation(conversations)

	case "down", "j":
		if m.convCursor < len(conversations)-1 {
			m.convCursor++
		}
		m.selectConversation(conversations)

	case "n":
		m.active = nil

	case "enter", "i":
		m.composer.Focus()
		m.composing = true
		return m, textinput.Blink

	case "x":
		prompts := m.thread()
		if len(prompts) > 0 && !m.sending {
			last := prompts[len(prompts)-1]
			return m, m.deleteCmd(last.Prompt.ID)
		}
	}

	return m, nil
}

func (m Model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.composer.Blur()
		m.composing = false
		return m, nil

	case "enter":
		message := strings.TrimSpace(m.composer.Value())
		if message == "" || m.sending {
			return m, nil
		}
		m.composer.SetValue("")
		m.sending = true
		return m, m.sendCmd(message, m.active)
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) sendCmd(message string, conversationID *int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		result, err := api.SendMessage(ctx, message, conversationID)
		if err != nil {
			return sendResultMsg{err: err}
		}
		return sendResultMsg{prompt: domain.Prompt{
			ID:             result.MessageID,
			ConversationID: result.ConversationID,
			Message:        message,
			Reply:          result.Reply,
			CreatedAt:      time.Now(),
		}}
	}
}

func (m Model) deleteCmd(id int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		result, err := api.DeletePrompt(ctx, id)
		if err != nil {
			return deleteResultMsg{id: id, err: err}
		}
		return deleteResultMsg{id: result.DeletedID}
	}
}

func (m *Model) selectConversation(conversations []domain.Prompt) {
	if len(conversations) == 0 {
		m.active = nil
		return
	}
	if m.convCursor >= len(conversations) {
		m.convCursor = len(conversations) - 1
	}
	id := conversations[m.convCursor].ConversationID
	m.active = &id
}

func (m *Model) clampCursor() {
	count := len(m.rec.Conversations())
	if m.convCursor >= count {
		m.convCursor = max(0, count-1)
	}
}

// thread returns the active conversation's prompts oldest first.
func (m Model) thread() []client.PromptView {
	if m.active == nil {
		return nil
	}
	all := m.rec.Prompts()

	var prompts []client.PromptView
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Prompt.ConversationID == *m.active {
			prompts = append(prompts, all[i])
		}
	}
	return prompts
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSidebar(),
		m.renderThread(),
	)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Lantern") + "\n")
	b.WriteString(body + "\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderSidebar() string {
	conversations := m.rec.Conversations()

	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d conversations", len(conversations))) + "\n")

	for i, c := range conversations {
		label := truncate(c.Message, sidebarWidth-6)
		line := fmt.Sprintf("#%d %s", c.ConversationID, label)
		if m.active != nil && c.ConversationID == *m.active && i == m.convCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.active == nil {
		b.WriteString(dimStyle.Render("(new conversation)") + "\n")
	}

	return sidebarStyle.Width(sidebarWidth).Height(m.bodyHeight()).Render(b.String())
}

func (m Model) renderThread() string {
	width := max(20, m.width-sidebarWidth-4)

	var b strings.Builder
	for _, view := range m.thread() {
		b.WriteString(userRoleStyle.Render("you") + " " + truncate(view.Prompt.Message, width) + "\n")

		reply := view.Reply
		if view.State == client.StateRevealing {
			b.WriteString(assistantRoleStyle.Render("assistant") + " " + revealingStyle.Render(reply+"▌") + "\n")
		} else {
			b.WriteString(assistantRoleStyle.Render("assistant") + " " + reply + "\n")
		}
		b.WriteString("\n")
	}

	if m.composing {
		b.WriteString("> " + m.composer.View() + "\n")
	}

	return lipgloss.NewStyle().Width(width).Height(m.bodyHeight()).Render(b.String())
}

func (m Model) renderFooter() string {
	status := statusBarStyle.Render(m.status.String())
	if m.rec.Degraded() {
		status += " " + degradedStyle.Render("degraded")
	}
	if m.sending {
		status += " " + dimStyle.Render("sending...")
	}
	if m.lastErr != "" {
		status += " " + errorStyle.Render(truncate(m.lastErr, m.width-20))
	}

	help := helpStyle.Render("  Enter: compose  n: new  x: delete last  q: quit")
	if m.composing {
		help = helpStyle.Render("  Enter: send  Esc: cancel")
	}
	return status + "\n" + help
}

func (m Model) bodyHeight() int {
	return max(5, m.height-4)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 2 || len(runes) <= width {
		return s
	}
	return string(runes[:width-2]) + ".."
}
