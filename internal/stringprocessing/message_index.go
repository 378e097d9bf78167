// Package stringprocessing provides text helpers shared by the view and the mock responder.
package stringprocessing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIndexOutOfRange is returned when a message index points outside the conversation.
var ErrIndexOutOfRange = errors.New("message index out of range")

// MessageIndex is a parsed message reference.
type MessageIndex struct {
	// Offset is the 0-based position in the message log.
	Offset int
	// Position describes the reference for status lines, e.g. "second-to-last message".
	Position string
}

// ParseMessageIndex resolves a user-typed message reference against a log of count messages.
// Two forms are accepted:
//   - "1", "2", "3" count back from the newest message (1 = last)
//   - ".1", ".2", ".3" count forward from the oldest message (.1 = first)
func ParseMessageIndex(ref string, count int) (MessageIndex, error) {
	ref = strings.TrimSpace(ref)
	forward := strings.HasPrefix(ref, ".")
	numStr := strings.TrimPrefix(ref, ".")
	if numStr == "" {
		return MessageIndex{}, fmt.Errorf("missing message index (use 1, 2 or .1, .2)")
	}

	num, err := strconv.Atoi(numStr)
	if err != nil {
		return MessageIndex{}, fmt.Errorf("invalid message index %q: %w", ref, err)
	}
	if num < 1 || num > count {
		return MessageIndex{}, fmt.Errorf("%w: %s (conversation has %d messages)", ErrIndexOutOfRange, ref, count)
	}

	if forward {
		return MessageIndex{Offset: num - 1, Position: OrdinalPosition(num, false)}, nil
	}
	return MessageIndex{Offset: count - num, Position: OrdinalPosition(num, true)}, nil
}

// OrdinalPosition returns a readable position such as "last message" or "4th message".
func OrdinalPosition(num int, fromEnd bool) string {
	if fromEnd {
		switch num {
		case 1:
			return "last message"
		case 2:
			return "second-to-last message"
		case 3:
			return "third-to-last message"
		default:
			return fmt.Sprintf("%d%s from last message", num, OrdinalSuffix(num))
		}
	}
	switch num {
	case 1:
		return "first message"
	case 2:
		return "second message"
	case 3:
		return "third message"
	default:
		return fmt.Sprintf("%d%s message", num, OrdinalSuffix(num))
	}
}

// OrdinalSuffix returns st, nd, rd or th for num. 11, 12 and 13 take "th".
func OrdinalSuffix(num int) string {
	if num%100 >= 11 && num%100 <= 13 {
		return "th"
	}
	switch num % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
