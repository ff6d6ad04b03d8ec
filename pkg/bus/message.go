// Package bus implements the contract with the host skill runtime: an
// OVOS-style message bus carrying {type, data, context} JSON envelopes
// over a WebSocket. The skill receives recognized utterances from the bus
// and answers with speak/acknowledge messages.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one bus envelope.
type Message struct {
	Type    string         `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// NewMessage creates a message with a fresh message ID in its context.
func NewMessage(msgType string, data map[string]any) Message {
	if data == nil {
		data = map[string]any{}
	}
	return Message{
		Type: msgType,
		Data: data,
		Context: map[string]any{
			"message_id": uuid.NewString(),
		},
	}
}

// Reply creates a message of the given type that carries this message's
// context forward, so the host can correlate the exchange.
func (m Message) Reply(msgType string, data map[string]any) Message {
	if data == nil {
		data = map[string]any{}
	}
	ctx := make(map[string]any, len(m.Context))
	for k, v := range m.Context {
		ctx[k] = v
	}
	return Message{Type: msgType, Data: data, Context: ctx}
}

// String returns the string value under key in the message data, or "".
func (m Message) String(key string) string {
	s, _ := m.Data[key].(string)
	return s
}

// Strings returns the string slice under key in the message data.
func (m Message) Strings(key string) []string {
	raw, ok := m.Data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg Message)

// Bus is the surface the skill needs from the host connection. The real
// implementation is Client; tests use Fake.
type Bus interface {
	// Emit sends a message to the host.
	Emit(msg Message) error
	// On registers a handler for a message type. Handlers for one
	// connection run sequentially, matching the host's dispatch model.
	On(msgType string, handler Handler)
	// Request emits a message and waits for the next message of replyType.
	Request(ctx context.Context, msg Message, replyType string, timeout time.Duration) (Message, error)
}
