// Package pubsub is the in-process event bus that decouples the chat core
// from its observers (presence, inbox notifications, tracing).
package pubsub

import (
	"context"
)

// Message is what travels on the bus.
type Message struct {
	// Topic is the event name, e.g. "chat.message.created".
	Topic string
	// UserID is the user the event is about, when there is one.
	UserID string
	// Payload is the JSON encoded event body.
	Payload []byte
	// Metadata carries free-form context such as the request id.
	Metadata map[string]string
}

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives messages from the bus.
type Subscriber interface {
	// Subscribe registers handler for topic and returns once the subscription
	// is live. Delivery stops when ctx is canceled or the bus is closed.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Bus is both ends of the event bus.
type Bus interface {
	Publisher
	Subscriber
}
