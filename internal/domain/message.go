package domain

import (
	"context"
	"time"
)

// Message is a single chat line. It is immutable after creation except for IsRead.
type Message struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
}

// MessageRepository is the durable half of the message store.
//
// IDs are assigned by the caller and sort in append order, so every listing is
// ordered by ID.
type MessageRepository interface {
	// Create commits the message before returning.
	Create(ctx context.Context, msg *Message) (*Message, error)
	// Recent returns up to limit of the newest messages in the room with an ID
	// lower than before (when before is non-empty), oldest-first.
	Recent(ctx context.Context, roomID string, limit int, before string) ([]*Message, error)
	// MarkRead flags every unread message in the room not sent by readerID.
	MarkRead(ctx context.Context, roomID, readerID string) (int, error)
	// CountUnread counts unread messages in the given rooms not sent by userID.
	CountUnread(ctx context.Context, userID string, roomIDs []string) (int, error)
}
