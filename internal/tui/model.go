// Package tui is the terminal chat view. It renders a conversation.Store snapshot
// and turns key presses and slash commands into store intents.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatbox/internal/conversation"
	"chatbox/pkg/chattypes"
)

const (
	idlePlaceholder    = "Type your message..."
	pendingPlaceholder = "AI is responding..."

	// highlightDuration is how long a jumped-to message stays emphasized.
	highlightDuration = 2 * time.Second

	// excerptLength matches the reply acknowledgement excerpt.
	excerptLength = 30

	timestampLayout = "3:04 PM"
)

// Renderer formats assistant text, e.g. as terminal markdown.
type Renderer interface {
	RenderOrPlain(markdown string) string
}

// Options configures the chat view.
type Options struct {
	// Renderer is optional; assistant text is shown as is without one.
	Renderer Renderer
	Styles   *Styles
	Title    string
}

// snapshotMsg carries fresh store state into the update loop.
type snapshotMsg struct {
	snapshot chattypes.Snapshot
}

// clearHighlightMsg ends the emphasis of a jumped-to message.
type clearHighlightMsg struct {
	id string
}

// Model is the Bubble Tea model of the chat view.
type Model struct {
	store    *conversation.Store
	changes  chan struct{}
	cancel   func()
	renderer Renderer
	styles   Styles
	title    string

	snapshot chattypes.Snapshot

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	highlightID string
	status      string
	statusErr   bool

	// offsets maps message ids to their first line in the viewport content.
	offsets map[string]int
}

// New creates the view for store and subscribes to its changes.
func New(store *conversation.Store, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = idlePlaceholder
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	title := opts.Title
	if title == "" {
		title = "AI Assistant"
	}

	// One pending signal is enough: the reader always fetches the latest snapshot
	changes := make(chan struct{}, 1)
	cancel := store.Subscribe(func(chattypes.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	m := Model{
		store:    store,
		changes:  changes,
		cancel:   cancel,
		renderer: opts.Renderer,
		styles:   styles,
		title:    title,
		snapshot: store.Snapshot(),
		viewport: viewport.New(0, 0),
		input:    ti,
		spinner:  sp,
		offsets:  make(map[string]int),
	}
	m.syncInput()
	return m
}

// Init starts the cursor blink and the store listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// Close stops listening to the store.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// waitForChange blocks until the store reports a change, then delivers a snapshot.
func (m Model) waitForChange() tea.Cmd {
	store, changes := m.store, m.changes
	return func() tea.Msg {
		<-changes
		return snapshotMsg{snapshot: store.Snapshot()}
	}
}

// send starts a send cycle. The store clears the draft and the reply target itself.
func (m *Model) send() tea.Cmd {
	if _, ok := m.store.Send(context.Background()); !ok {
		return nil
	}
	m.input.Reset()
	m.status = ""
	m.snapshot = m.store.Snapshot()
	m.syncInput()
	m.refreshViewport(true)
	return m.spinner.Tick
}

// syncInput mirrors the pending flag onto the input field.
func (m *Model) syncInput() {
	if m.snapshot.Pending {
		m.input.Placeholder = pendingPlaceholder
		m.input.Blur()
		return
	}
	m.input.Placeholder = idlePlaceholder
	m.input.Focus()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}
