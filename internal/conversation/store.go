// Package conversation implements the client-side conversation store: the ordered
// message log, the compose draft, the reply target and the single in-flight send cycle.
//
// The store is the only owner of conversation state. Views read it through Snapshot
// and change it only through the intent methods (SetDraft, SetReplyTarget,
// ClearReplyTarget, Send, AppendMessage).
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatbox/internal/logger"
	"chatbox/internal/testutils"
	"chatbox/pkg/chattypes"
)

// Greeting is the assistant message every new conversation starts with.
const Greeting = "Hello! I'm your AI assistant. How can I help you today?"

// FallbackReply is appended when the resolver fails in a way it did not absorb itself.
const FallbackReply = "Sorry, I'm having trouble responding right now. Please try again! 😅"

var (
	// ErrEmptyMessage is returned when appending a message without visible text.
	ErrEmptyMessage = errors.New("message text cannot be empty")
	// ErrInvalidSender is returned when appending a message with an unknown sender.
	ErrInvalidSender = errors.New("unknown message sender")
	// ErrMessageNotFound is returned when a message id is not in the log.
	ErrMessageNotFound = errors.New("message not found")
)

// Resolver produces the assistant reply for one outgoing message.
type Resolver interface {
	Resolve(ctx context.Context, req chattypes.ResolveRequest) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, req chattypes.ResolveRequest) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, req chattypes.ResolveRequest) (string, error) {
	return f(ctx, req)
}

// Option configures a Store.
type Option func(*Store)

// WithIDSource sets the message id generator.
func WithIDSource(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithClock sets the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithHistoryWindow sets how many prior messages are handed to the resolver.
func WithHistoryWindow(window int) Option {
	return func(s *Store) { s.historyWindow = window }
}

// WithGreeting replaces the seeded assistant greeting.
func WithGreeting(text string) Option {
	return func(s *Store) { s.greeting = text }
}

// Store holds the state of one chat session.
type Store struct {
	mu          sync.Mutex
	messages    []chattypes.Message
	draft       string
	replyTarget *chattypes.ReplySnapshot
	pending     bool
	seq         uint64

	resolver      Resolver
	newID         func() string
	now           func() time.Time
	historyWindow int
	greeting      string

	subscribers    map[int]func(chattypes.Snapshot)
	nextSubscriber int
}

// New creates a store seeded with the assistant greeting.
// A nil resolver is allowed; every send then settles with FallbackReply.
func New(resolver Resolver, opts ...Option) *Store {
	s := &Store{
		resolver:      resolver,
		newID:         defaultID,
		now:           time.Now,
		historyWindow: DefaultHistoryWindow,
		greeting:      Greeting,
		subscribers:   make(map[int]func(chattypes.Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.messages = []chattypes.Message{{
		ID:        s.newID(),
		Sender:    chattypes.SenderAssistant,
		Text:      s.greeting,
		Timestamp: s.now(),
	}}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() chattypes.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Pending reports whether a send cycle is outstanding.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Message looks up a message by id.
func (s *Store) Message(id string) (chattypes.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range s.messages {
		if msg.ID == id {
			return copyMessage(msg), true
		}
	}
	return chattypes.Message{}, false
}

// Subscribe registers fn to receive a snapshot after every state change.
// Callbacks run outside the store lock, possibly on the resolver goroutine, so
// concurrent changes can deliver snapshots out of order. Subscribers keep the
// snapshot with the highest Seq and drop older ones.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(chattypes.Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// AppendMessage inserts msg at the tail of the log.
// Missing ids and timestamps are filled in; the reply snapshot is copied.
func (s *Store) AppendMessage(msg chattypes.Message) (chattypes.Message, error) {
	if !msg.Sender.IsValid() {
		return chattypes.Message{}, fmt.Errorf("%w: %q", ErrInvalidSender, msg.Sender)
	}
	if msg.IsBlank() {
		return chattypes.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg = copyMessage(msg)
	s.messages = append(s.messages, msg)
	s.seq++
	s.mu.Unlock()

	logger.Debug("Message appended", "id", msg.ID, "sender", msg.Sender)
	s.notify()
	return copyMessage(msg), nil
}

// SetDraft replaces the compose text verbatim.
func (s *Store) SetDraft(text string) {
	s.mu.Lock()
	changed := s.draft != text
	s.draft = text
	if changed {
		s.seq++
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// SetReplyTarget selects msg as the message the next send replies to.
// A nil msg clears the selection.
func (s *Store) SetReplyTarget(msg *chattypes.Message) {
	s.mu.Lock()
	if msg == nil {
		s.replyTarget = nil
	} else {
		s.replyTarget = chattypes.NewReplySnapshot(*msg)
	}
	s.seq++
	s.mu.Unlock()

	s.notify()
}

// SelectReplyTarget selects the logged message with the given id as reply target.
func (s *Store) SelectReplyTarget(id string) error {
	msg, ok := s.Message(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	s.SetReplyTarget(&msg)
	return nil
}

// ClearReplyTarget drops the current reply selection.
func (s *Store) ClearReplyTarget() {
	s.SetReplyTarget(nil)
}

// Send starts a send cycle from the current draft.
//
// It is a no-op returning (nil, false) when the trimmed draft is empty or a cycle
// is already pending. Otherwise the user message is appended immediately, draft and
// reply target are cleared, and the resolver runs in the background. The cycle
// always settles with exactly one assistant message, after which the store is idle.
//
// Cancelling ctx does not abort the cycle.
func (s *Store) Send(ctx context.Context) (*Cycle, bool) {
	s.mu.Lock()
	if s.pending || strings.TrimSpace(s.draft) == "" {
		pending := s.pending
		s.mu.Unlock()
		logger.Debug("Send ignored", "pending", pending)
		return nil, false
	}

	// History is taken before the outgoing message is appended; the outgoing
	// text travels separately in the request.
	history := FormatHistory(s.messages, s.historyWindow)
	reply := s.replyTarget.Clone()

	user := chattypes.Message{
		ID:        s.newID(),
		Sender:    chattypes.SenderUser,
		Text:      s.draft,
		Timestamp: s.now(),
		ReplyTo:   reply,
	}
	s.messages = append(s.messages, user)
	s.draft = ""
	s.replyTarget = nil
	s.pending = true
	s.seq++
	cycle := newCycle(copyMessage(user))
	s.mu.Unlock()

	logger.StoreTransition("idle", "pending", "message_id", user.ID, "history", len(history), "reply", reply != nil)
	s.notify()

	req := chattypes.ResolveRequest{
		Text:    user.Text,
		History: history,
		ReplyTo: reply.Clone(),
	}
	go s.complete(context.WithoutCancel(ctx), cycle, req)

	return cycle, true
}

// complete resolves the reply and settles the cycle. It runs once per accepted send.
func (s *Store) complete(ctx context.Context, cycle *Cycle, req chattypes.ResolveRequest) {
	text := s.resolve(ctx, req)

	s.mu.Lock()
	reply := chattypes.Message{
		ID:        s.newID(),
		Sender:    chattypes.SenderAssistant,
		Text:      text,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, reply)
	s.pending = false
	s.seq++
	s.mu.Unlock()

	logger.StoreTransition("pending", "idle", "message_id", reply.ID)
	s.notify()
	cycle.settle(copyMessage(reply))
}

// resolve calls the resolver and converts every failure into FallbackReply.
func (s *Store) resolve(ctx context.Context, req chattypes.ResolveRequest) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Resolver panicked", "panic", r)
			text = FallbackReply
		}
	}()

	if s.resolver == nil {
		logger.Error("No resolver configured")
		return FallbackReply
	}

	reply, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		logger.Error("Resolver failed", "error", err)
		return FallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		logger.Error("Resolver returned an empty reply")
		return FallbackReply
	}
	return reply
}

func (s *Store) notify() {
	s.mu.Lock()
	if len(s.subscribers) == 0 {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	subscribers := make([]func(chattypes.Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

func (s *Store) snapshotLocked() chattypes.Snapshot {
	messages := make([]chattypes.Message, len(s.messages))
	for i, msg := range s.messages {
		messages[i] = copyMessage(msg)
	}
	return chattypes.Snapshot{
		Seq:         s.seq,
		Messages:    messages,
		Draft:       s.draft,
		ReplyTarget: s.replyTarget.Clone(),
		Pending:     s.pending,
	}
}

func defaultID() string {
	return testutils.GenerateID(false)
}

func copyMessage(msg chattypes.Message) chattypes.Message {
	msg.ReplyTo = msg.ReplyTo.Clone()
	return msg
}
