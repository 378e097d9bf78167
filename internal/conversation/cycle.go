package conversation

import (
	"context"

	"chatbox/pkg/chattypes"
)

// Cycle tracks one accepted send: the optimistic user message and the single
// assistant message that settles it.
type Cycle struct {
	user  chattypes.Message
	reply chattypes.Message
	done  chan struct{}
}

func newCycle(user chattypes.Message) *Cycle {
	return &Cycle{user: user, done: make(chan struct{})}
}

// UserMessage returns the message appended when the cycle started.
func (c *Cycle) UserMessage() chattypes.Message {
	return c.user
}

// Done is closed once the assistant reply has been appended and the store is idle again.
func (c *Cycle) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the cycle settles or ctx ends.
// Cancelling ctx only stops the wait; the cycle itself always completes.
func (c *Cycle) Wait(ctx context.Context) (chattypes.Message, error) {
	select {
	case <-c.done:
		return c.reply, nil
	case <-ctx.Done():
		return chattypes.Message{}, ctx.Err()
	}
}

func (c *Cycle) settle(reply chattypes.Message) {
	c.reply = reply
	close(c.done)
}
