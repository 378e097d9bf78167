package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatbox/internal/stringprocessing"
	"chatbox/pkg/chattypes"
)

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sections := []string{m.headerView(), m.viewport.View()}
	if m.snapshot.ReplyTarget != nil {
		sections = append(sections, m.replyPreviewView())
	}
	sections = append(sections, m.inputView(), m.statusView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	return m.styles.Header.Render(m.title)
}

func (m Model) inputView() string {
	return m.styles.Input.Render(m.input.View())
}

func (m Model) statusView() string {
	if m.status == "" {
		return m.styles.Status.Render("Enter send · /reply N · /jump N · Esc cancel reply · Ctrl+C quit")
	}
	if m.statusErr {
		return m.styles.StatusError.Render(m.status)
	}
	return m.styles.Status.Render(m.status)
}

// replyPreviewView shows which message the next send replies to.
func (m Model) replyPreviewView() string {
	target := m.snapshot.ReplyTarget
	return m.styles.ReplyBar.Render(fmt.Sprintf("Replying to %s: %s  (Esc to cancel)",
		senderName(target.Sender),
		stringprocessing.Excerpt(stringprocessing.SingleLine(target.Text), excerptLength)))
}

// refreshViewport rebuilds the message list and records where each message starts.
func (m *Model) refreshViewport(gotoBottom bool) {
	content, offsets := m.renderMessages()
	m.offsets = offsets
	m.viewport.SetContent(content)
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessages() (string, map[string]int) {
	offsets := make(map[string]int, len(m.snapshot.Messages))
	blocks := make([]string, 0, len(m.snapshot.Messages)+1)
	line := 0
	total := len(m.snapshot.Messages)

	for i, msg := range m.snapshot.Messages {
		block := m.renderMessage(msg, total-i)
		if msg.ID == m.highlightID {
			block = m.styles.Highlight.Render(block)
		}
		offsets[msg.ID] = line
		line += lipgloss.Height(block) + 1
		blocks = append(blocks, block)
	}

	if m.snapshot.Pending {
		blocks = append(blocks, m.styles.Thinking.Render(m.spinner.View()+" AI is thinking..."))
	}
	return strings.Join(blocks, "\n\n"), offsets
}

// renderMessage formats one message. reverseIndex is the /reply and /jump number (1 = last).
func (m Model) renderMessage(msg chattypes.Message, reverseIndex int) string {
	label := m.styles.UserLabel.Render("You")
	if msg.Sender == chattypes.SenderAssistant {
		label = m.styles.BotLabel.Render("AI")
	}
	header := fmt.Sprintf("%s %s %s",
		m.styles.Index.Render(fmt.Sprintf("[%d]", reverseIndex)),
		label,
		m.styles.Timestamp.Render(msg.Timestamp.Format(timestampLayout)))

	lines := []string{header}
	if msg.ReplyTo != nil {
		lines = append(lines, m.styles.Quote.Render(fmt.Sprintf("↪ %s: %s",
			senderName(msg.ReplyTo.Sender),
			stringprocessing.Excerpt(stringprocessing.SingleLine(msg.ReplyTo.Text), excerptLength))))
	}

	text := msg.Text
	if msg.Sender == chattypes.SenderAssistant && m.renderer != nil {
		text = m.renderer.RenderOrPlain(text)
	}
	body := m.styles.Body
	if m.width > 4 {
		body = body.Width(m.width - 2)
	}
	lines = append(lines, body.Render(text))
	return strings.Join(lines, "\n")
}

func senderName(sender chattypes.Sender) string {
	if sender == chattypes.SenderAssistant {
		return "AI"
	}
	return "You"
}
