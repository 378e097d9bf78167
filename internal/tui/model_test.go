package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbox/internal/conversation"
	"chatbox/internal/testutils"
	"chatbox/pkg/chattypes"
)

// heldResolver answers only after release is closed.
type heldResolver struct {
	release chan struct{}
}

func (r heldResolver) Resolve(_ context.Context, req chattypes.ResolveRequest) (string, error) {
	<-r.release
	return "echo: " + req.Text, nil
}

type upperRenderer struct{}

func (upperRenderer) RenderOrPlain(markdown string) string { return strings.ToUpper(markdown) }

func newTestModel(t *testing.T, resolver conversation.Resolver, opts Options) (Model, *conversation.Store) {
	t.Helper()
	testutils.ResetTestCounters()
	store := conversation.New(resolver,
		conversation.WithIDSource(testutils.IDSource(true)),
		conversation.WithClock(testutils.Clock(true)),
	)
	m := New(store, opts)
	t.Cleanup(m.Close)
	m = step(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, store
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func stepCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func enter(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	return stepCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestView_LoadingBeforeResize(t *testing.T) {
	store := conversation.New(nil)
	m := New(store, Options{})
	defer m.Close()
	assert.Equal(t, "Loading...", m.View())
}

func TestView_ShowsGreeting(t *testing.T) {
	m, _ := newTestModel(t, nil, Options{})

	view := m.View()
	assert.Contains(t, view, "AI Assistant")
	assert.Contains(t, view, conversation.Greeting)
	assert.Contains(t, view, "[1]")
	assert.Contains(t, view, "12:00 AM")
}

func TestView_RendersAssistantTextThroughRenderer(t *testing.T) {
	m, _ := newTestModel(t, nil, Options{Renderer: upperRenderer{}, Title: "Support"})

	view := m.View()
	assert.Contains(t, view, "Support")
	assert.Contains(t, view, strings.ToUpper(conversation.Greeting))
}

func TestTyping_SetsDraft(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})

	m = typeText(t, m, "hello")
	assert.Equal(t, "hello", store.Snapshot().Draft)
	assert.Equal(t, "hello", m.input.Value())
}

func TestEnter_SendsAndBlursWhilePending(t *testing.T) {
	resolver := heldResolver{release: make(chan struct{})}
	m, store := newTestModel(t, resolver, Options{})

	m = typeText(t, m, "hi")
	m, cmd := enter(t, m)
	assert.NotNil(t, cmd, "spinner starts ticking")

	snapshot := store.Snapshot()
	require.Len(t, snapshot.Messages, 2)
	assert.Equal(t, "hi", snapshot.Messages[1].Text)
	assert.True(t, snapshot.Pending)

	assert.Empty(t, m.input.Value())
	assert.False(t, m.input.Focused())
	assert.Equal(t, pendingPlaceholder, m.input.Placeholder)
	assert.Contains(t, m.View(), "AI is thinking...")

	// Keys are ignored while pending
	m = typeText(t, m, "more")
	assert.Empty(t, m.input.Value())
	m, _ = enter(t, m)
	assert.Len(t, store.Snapshot().Messages, 2)

	close(resolver.release)
	require.Eventually(t, func() bool { return !store.Pending() }, 2*time.Second, 10*time.Millisecond)

	m = step(t, m, snapshotMsg{snapshot: store.Snapshot()})
	assert.True(t, m.input.Focused())
	assert.Equal(t, idlePlaceholder, m.input.Placeholder)
	assert.Contains(t, m.View(), "echo: hi")
	assert.NotContains(t, m.View(), "AI is thinking...")
}

func TestEnter_BlankDraftIsIgnored(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})

	m = typeText(t, m, "   ")
	_, cmd := enter(t, m)
	assert.Nil(t, cmd)
	assert.Len(t, store.Snapshot().Messages, 1)
	assert.False(t, store.Pending())
}

func TestReplyCommand(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})

	m = typeText(t, m, "/reply 1")
	m, _ = enter(t, m)

	target := store.Snapshot().ReplyTarget
	require.NotNil(t, target)
	assert.Equal(t, conversation.Greeting, target.Text)
	assert.Equal(t, "Replying to the last message", m.status)
	assert.Empty(t, store.Snapshot().Draft, "commands never become drafts")
	assert.Contains(t, m.View(), "Replying to AI: Hello! I'm your AI assistant. ...")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, store.Snapshot().ReplyTarget)
	assert.NotContains(t, m.View(), "Replying to AI")
}

func TestReplyThenSendCarriesSnapshot(t *testing.T) {
	resolver := heldResolver{release: make(chan struct{})}
	defer close(resolver.release)
	m, store := newTestModel(t, resolver, Options{})

	m = typeText(t, m, "/reply .1")
	m, _ = enter(t, m)
	m = typeText(t, m, "thanks")
	m, _ = enter(t, m)

	user := store.Snapshot().Messages[1]
	require.NotNil(t, user.ReplyTo)
	assert.Equal(t, conversation.Greeting, user.ReplyTo.Text)
	assert.Nil(t, store.Snapshot().ReplyTarget)
	assert.Contains(t, m.View(), "↪ AI:")
}

func TestCancelCommand(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})

	m = typeText(t, m, "/cancel")
	m, _ = enter(t, m)
	assert.Equal(t, "No reply in progress", m.status)

	m = typeText(t, m, "/reply 1")
	m, _ = enter(t, m)
	m = typeText(t, m, "/cancel")
	m, _ = enter(t, m)
	assert.Nil(t, store.Snapshot().ReplyTarget)
	assert.Equal(t, "Reply cancelled", m.status)
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"out of range", "/reply 5", "out of range"},
		{"missing index", "/jump", "expected one message index"},
		{"not a number", "/reply x", "invalid message index"},
		{"unknown command", "/dance", "Unknown command /dance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestModel(t, nil, Options{})
			m = typeText(t, m, tt.command)
			m, _ = enter(t, m)

			assert.True(t, m.statusErr)
			assert.Contains(t, m.status, tt.want)
			assert.Nil(t, store.Snapshot().ReplyTarget)
		})
	}
}

func TestJumpCommandHighlightsTemporarily(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})
	greeting := store.Snapshot().Messages[0]

	m = typeText(t, m, "/jump .1")
	m, cmd := enter(t, m)
	require.NotNil(t, cmd)
	assert.Equal(t, greeting.ID, m.highlightID)
	assert.Equal(t, "Showing the first message", m.status)
	assert.Equal(t, 0, m.viewport.YOffset)

	// A stale clear for another message leaves the highlight alone
	m = step(t, m, clearHighlightMsg{id: "other"})
	assert.Equal(t, greeting.ID, m.highlightID)

	m = step(t, m, clearHighlightMsg{id: greeting.ID})
	assert.Empty(t, m.highlightID)
}

func TestJumpDoesNotMutateStore(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})
	before := store.Snapshot()

	m = typeText(t, m, "/jump 1")
	_, _ = enter(t, m)
	after := store.Snapshot()
	assert.Equal(t, before.Messages, after.Messages)
	assert.Equal(t, before.ReplyTarget, after.ReplyTarget)
	assert.Equal(t, before.Draft, after.Draft)
	assert.Equal(t, before.Pending, after.Pending)
}

func TestMessageOffsets(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})
	for _, text := range []string{"one", "two", "three"} {
		_, err := store.AppendMessage(chattypes.Message{Sender: chattypes.SenderUser, Text: text})
		require.NoError(t, err)
	}
	m = step(t, m, snapshotMsg{snapshot: store.Snapshot()})

	messages := store.Snapshot().Messages
	require.Len(t, m.offsets, 4)
	assert.Equal(t, 0, m.offsets[messages[0].ID])
	for i := 1; i < len(messages); i++ {
		assert.Greater(t, m.offsets[messages[i].ID], m.offsets[messages[i-1].ID])
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, nil, Options{})

	_, cmd := stepCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	m = typeText(t, m, "/quit")
	_, cmd = enter(t, m)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestStaleSnapshotIsDropped(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})
	stale := store.Snapshot()

	_, err := store.AppendMessage(chattypes.Message{Sender: chattypes.SenderAssistant, Text: "newer state"})
	require.NoError(t, err)
	m = step(t, m, snapshotMsg{snapshot: store.Snapshot()})

	m, cmd := stepCmd(t, m, snapshotMsg{snapshot: stale})
	assert.NotNil(t, cmd, "keeps listening for changes")
	assert.Len(t, m.snapshot.Messages, 2)
	assert.Contains(t, m.View(), "newer state")
}

func TestStoreChangesReachTheView(t *testing.T) {
	m, store := newTestModel(t, nil, Options{})

	_, err := store.AppendMessage(chattypes.Message{Sender: chattypes.SenderAssistant, Text: "pushed from elsewhere"})
	require.NoError(t, err)

	msg := m.waitForChange()()
	m = step(t, m, msg)
	assert.Contains(t, m.View(), "pushed from elsewhere")
}
