package chattypes

import "time"

// Roles used in the remote history payload.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one message of conversation context sent to the remote chat API.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyContext describes the replied-to message in a remote chat request.
type ReplyContext struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the JSON body of POST {base_url}/chat.
type ChatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
	ReplyTo *ReplyContext  `json:"replyTo,omitempty"`
}

// ChatResponse is the JSON body returned by the remote chat API.
// Either field may carry the reply; Reply takes precedence.
type ChatResponse struct {
	Reply   string `json:"reply,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns the reply text, preferring Reply over Message.
func (r ChatResponse) Text() string {
	if r.Reply != "" {
		return r.Reply
	}
	return r.Message
}

// NewReplyContext converts a reply snapshot into its wire form.
func NewReplyContext(snapshot *ReplySnapshot) *ReplyContext {
	if snapshot == nil {
		return nil
	}
	return &ReplyContext{
		Sender:    snapshot.Sender,
		Text:      snapshot.Text,
		Timestamp: snapshot.Timestamp,
	}
}
