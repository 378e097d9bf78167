// Package chattypes defines the message and conversation types shared by the chatbox
// store, the response resolver and the terminal view.
package chattypes

import (
	"strings"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser marks messages typed by the person using the widget.
	SenderUser Sender = "user"
	// SenderAssistant marks greeting, resolver and fallback messages.
	SenderAssistant Sender = "assistant"
)

// IsValid reports whether s is one of the known senders.
func (s Sender) IsValid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Message is a single entry in the conversation log.
// Messages are immutable once appended to a store.
type Message struct {
	ID        string         `json:"id"`                // Unique, time-ordered identifier
	Sender    Sender         `json:"sender"`            // Author of the message
	Text      string         `json:"text"`              // Display text, never empty
	Timestamp time.Time      `json:"timestamp"`         // Creation instant
	ReplyTo   *ReplySnapshot `json:"replyTo,omitempty"` // Message being replied to, if any
}

// IsBlank reports whether the message text is empty after trimming whitespace.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Text) == ""
}

// ReplySnapshot is a value copy of the fields of a message that another message replies to.
// It is captured when the reply target is chosen and never follows later changes
// to the original message.
type ReplySnapshot struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReplySnapshot copies the reply-relevant fields of msg.
func NewReplySnapshot(msg Message) *ReplySnapshot {
	return &ReplySnapshot{
		ID:        msg.ID,
		Text:      msg.Text,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
}

// Clone returns an independent copy of the snapshot, or nil for a nil receiver.
func (r *ReplySnapshot) Clone() *ReplySnapshot {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
