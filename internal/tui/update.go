package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		if msg.snapshot.Seq < m.snapshot.Seq {
			return m, m.waitForChange()
		}
		wasPending := m.snapshot.Pending
		m.snapshot = msg.snapshot
		m.syncInput()
		m.refreshViewport(true)
		cmds := []tea.Cmd{m.waitForChange()}
		if m.snapshot.Pending && !wasPending {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.snapshot.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport(false)
		return m, cmd

	case clearHighlightMsg:
		if m.highlightID == msg.id {
			m.highlightID = ""
			m.refreshViewport(false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.input.Width = max(msg.Width-8, 10)

	viewportHeight := max(msg.Height-m.chromeHeight(), 3)
	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
	m.refreshViewport(true)
	return m
}

// chromeHeight is the number of lines taken by everything but the message list.
func (m Model) chromeHeight() int {
	height := lipgloss.Height(m.headerView()) + lipgloss.Height(m.inputView()) + 1
	if m.snapshot.ReplyTarget != nil {
		height += lipgloss.Height(m.replyPreviewView())
	}
	return height
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.Close()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.snapshot.ReplyTarget != nil {
			m.store.ClearReplyTarget()
			m.snapshot = m.store.Snapshot()
			m.setStatus("Reply cancelled", false)
			m.handleLayoutChange()
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		if m.snapshot.Pending {
			return m, nil
		}
		value := m.input.Value()
		if strings.HasPrefix(strings.TrimSpace(value), "/") {
			m.input.Reset()
			m.store.SetDraft("")
			return m.runCommand(strings.TrimSpace(value))
		}
		m.store.SetDraft(value)
		cmd := m.send()
		return m, cmd
	}

	if m.snapshot.Pending {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.store.SetDraft(after)
	}
	return m, cmd
}

// handleLayoutChange resizes the viewport after the reply preview appears or disappears.
func (m *Model) handleLayoutChange() {
	if !m.ready {
		return
	}
	m.viewport.Height = max(m.height-m.chromeHeight(), 3)
	m.refreshViewport(false)
}

func clearHighlightAfter(id string) tea.Cmd {
	return tea.Tick(highlightDuration, func(time.Time) tea.Msg {
		return clearHighlightMsg{id: id}
	})
}
