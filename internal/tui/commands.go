package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"chatbox/internal/stringprocessing"
	"chatbox/pkg/chattypes"
)

const helpText = "/reply N  reply to a message (1 = last, .1 = first) · /jump N  show a message · /cancel  drop the reply · /quit"

// runCommand executes a slash command typed into the input.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "/quit", "/exit":
		m.Close()
		return m, tea.Quit

	case "/help":
		m.setStatus(helpText, false)
		return m, nil

	case "/cancel":
		if m.snapshot.ReplyTarget == nil {
			m.setStatus("No reply in progress", false)
			return m, nil
		}
		m.store.ClearReplyTarget()
		m.snapshot = m.store.Snapshot()
		m.setStatus("Reply cancelled", false)
		m.handleLayoutChange()
		return m, nil

	case "/reply":
		msg, position, err := m.lookup(args)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		if err := m.store.SelectReplyTarget(msg.ID); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.snapshot = m.store.Snapshot()
		m.setStatus(fmt.Sprintf("Replying to the %s", position), false)
		m.handleLayoutChange()
		return m, nil

	case "/jump":
		msg, position, err := m.lookup(args)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.highlightID = msg.ID
		m.refreshViewport(false)
		m.scrollTo(msg.ID)
		m.setStatus(fmt.Sprintf("Showing the %s", position), false)
		return m, clearHighlightAfter(msg.ID)

	default:
		m.setStatus(fmt.Sprintf("Unknown command %s. %s", name, helpText), true)
		return m, nil
	}
}

// lookup resolves a message reference argument against the current snapshot.
func (m Model) lookup(args []string) (chattypes.Message, string, error) {
	if len(args) != 1 {
		return chattypes.Message{}, "", fmt.Errorf("expected one message index, e.g. 1 or .1")
	}
	idx, err := stringprocessing.ParseMessageIndex(args[0], len(m.snapshot.Messages))
	if err != nil {
		return chattypes.Message{}, "", err
	}
	return m.snapshot.Messages[idx.Offset], idx.Position, nil
}

// scrollTo moves the viewport so the message starts at the top.
func (m *Model) scrollTo(id string) {
	offset, ok := m.offsets[id]
	if !ok {
		return
	}
	m.viewport.SetYOffset(offset)
}
