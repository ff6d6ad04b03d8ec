package bus

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Fake is an in-memory Bus for tests. Emitted messages are recorded,
// handlers run synchronously from Deliver, and Request answers from a
// queue of canned replies.
type Fake struct {
	mu       sync.Mutex
	emitted  []Message
	handlers map[string][]Handler
	replies  []Message
}

// NewFake creates an empty fake bus.
func NewFake() *Fake {
	return &Fake{handlers: make(map[string][]Handler)}
}

// Emit records the message.
func (f *Fake) Emit(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, msg)
	return nil
}

// On registers a handler.
func (f *Fake) On(msgType string, handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[msgType] = append(f.handlers[msgType], handler)
}

// Request records the message and pops the next queued reply of replyType.
func (f *Fake) Request(_ context.Context, msg Message, replyType string, _ time.Duration) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.emitted = append(f.emitted, msg)

	for i, reply := range f.replies {
		if reply.Type == replyType {
			f.replies = append(f.replies[:i], f.replies[i+1:]...)
			return reply, nil
		}
	}
	return Message{}, errors.Errorf("no queued reply for %s", replyType)
}

// QueueReply adds a canned reply for a future Request call.
func (f *Fake) QueueReply(msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, msg)
}

// Deliver invokes the handlers registered for the message type.
func (f *Fake) Deliver(ctx context.Context, msg Message) {
	f.mu.Lock()
	handlers := append([]Handler(nil), f.handlers[msg.Type]...)
	f.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx, msg)
	}
}

// Emitted returns a copy of every message sent so far.
func (f *Fake) Emitted() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.emitted...)
}

// EmittedOfType returns the sent messages of one type.
func (f *Fake) EmittedOfType(msgType string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Message
	for _, msg := range f.emitted {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// Reset clears recorded and queued messages.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = nil
	f.replies = nil
}
