package conversation

import "chatbox/pkg/chattypes"

// DefaultHistoryWindow is the number of most recent messages sent as remote context.
const DefaultHistoryWindow = 10

// FormatHistory maps the most recent window messages to their wire form.
// A non-positive window falls back to DefaultHistoryWindow.
func FormatHistory(messages []chattypes.Message, window int) []chattypes.HistoryEntry {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}

	history := make([]chattypes.HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		role := chattypes.RoleAssistant
		if msg.Sender == chattypes.SenderUser {
			role = chattypes.RoleUser
		}
		history = append(history, chattypes.HistoryEntry{
			Role:      role,
			Content:   msg.Text,
			Timestamp: msg.Timestamp,
		})
	}
	return history
}
