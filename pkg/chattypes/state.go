package chattypes

// Snapshot is a read-only copy of the conversation state handed to views.
// Mutating a snapshot never affects the store it came from.
// Seq grows with every state change, so a larger Seq is always newer state.
type Snapshot struct {
	Seq         uint64         // State version, starting at 0 for a new store
	Messages    []Message      // Ordered conversation log, oldest first
	Draft       string         // Current compose text
	ReplyTarget *ReplySnapshot // Message selected for reply, nil when none
	Pending     bool           // True while a send cycle is outstanding
}

// ResolveRequest carries everything a resolver needs to produce one assistant reply.
type ResolveRequest struct {
	Text    string         // Outgoing user text
	History []HistoryEntry // Formatted conversation before the outgoing message
	ReplyTo *ReplySnapshot // Reply context, nil when the message is not a reply
}
