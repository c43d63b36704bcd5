package chat

import (
	"time"

	"github.com/nfrund/parley/internal/pubsub"
)

// Connection kinds carried on lifecycle events.
const (
	KindRoom  = "room"
	KindInbox = "inbox"
)

// MessageCreated is published after a message was persisted and fanned out.
var MessageCreated = pubsub.NewEvent[MessageCreatedEvent]("chat.message.created")

// ConnectionOpened and ConnectionClosed bracket the life of every registered socket.
var (
	ConnectionOpened = pubsub.NewEvent[ConnectionEvent]("chat.connection.opened")
	ConnectionClosed = pubsub.NewEvent[ConnectionEvent]("chat.connection.closed")
)

type MessageCreatedEvent struct {
	MessageID      string    `json:"message_id"`
	RoomID         string    `json:"room_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Delivered      int       `json:"delivered"`
}

type ConnectionEvent struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	Group        string `json:"group"`
	Kind         string `json:"kind"`
}
