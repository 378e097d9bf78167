package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatbox/pkg/chattypes"
)

func TestFormatHistory(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	messages := make([]chattypes.Message, 0, 15)
	for i := 0; i < 15; i++ {
		sender := chattypes.SenderUser
		if i%2 == 1 {
			sender = chattypes.SenderAssistant
		}
		messages = append(messages, chattypes.Message{
			ID:        fmt.Sprintf("m-%d", i),
			Sender:    sender,
			Text:      fmt.Sprintf("text %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	t.Run("keeps the most recent ten", func(t *testing.T) {
		history := FormatHistory(messages, 10)
		assert.Len(t, history, 10)
		assert.Equal(t, "text 5", history[0].Content)
		assert.Equal(t, "text 14", history[9].Content)
		assert.Equal(t, base.Add(14*time.Second), history[9].Timestamp)
	})

	t.Run("maps senders to roles", func(t *testing.T) {
		history := FormatHistory(messages[:2], 10)
		assert.Equal(t, chattypes.RoleUser, history[0].Role)
		assert.Equal(t, chattypes.RoleAssistant, history[1].Role)
	})

	t.Run("shorter logs are kept whole", func(t *testing.T) {
		assert.Len(t, FormatHistory(messages[:3], 10), 3)
	})

	t.Run("non-positive window uses default", func(t *testing.T) {
		assert.Len(t, FormatHistory(messages, 0), DefaultHistoryWindow)
	})

	t.Run("empty log", func(t *testing.T) {
		history := FormatHistory(nil, 10)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})
}
