// Package inbox pushes a notification to the other participant's inbox
// sockets whenever a message is stored, so clients can update unread badges
// without having the room open.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/pubsub"
)

// TypeNewMessage is the frame type of inbox notifications.
const TypeNewMessage = "new_message"

// Notification is the frame sent to inbox sockets.
type Notification struct {
	Type           string `json:"type"`
	RoomID         string `json:"room_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
	UnreadCount    int    `json:"unread_count"`
}

// Participants resolves who is in a room; rooms.Registry implements it.
type Participants interface {
	ParticipantsOf(ctx context.Context, roomID string) ([]string, error)
}

// UnreadCounter counts a user's unread messages; messages.Store implements it.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type Notifier struct {
	rooms   Participants
	unread  UnreadCounter
	manager *chat.Manager
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewNotifier subscribes a notifier to chat.MessageCreated on sub.
func NewNotifier(sub pubsub.Subscriber, rooms Participants, unread UnreadCounter, manager *chat.Manager, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		rooms:   rooms,
		unread:  unread,
		manager: manager,
		logger:  logger.With("component", "inbox"),
		cancel:  cancel,
	}
	if err := pubsub.Subscribe(ctx, sub, chat.MessageCreated, n.Notify); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", chat.MessageCreated.Name(), err)
	}
	return n, nil
}

// Notify delivers e to the inbox of every participant but the sender.
func (n *Notifier) Notify(ctx context.Context, e chat.MessageCreatedEvent) error {
	participants, err := n.rooms.ParticipantsOf(ctx, e.RoomID)
	if err != nil {
		return fmt.Errorf("participants of room %s: %w", e.RoomID, err)
	}

	for _, userID := range participants {
		if userID == e.SenderID {
			continue
		}
		group := chat.InboxGroup(userID)
		if len(n.manager.SubscribersOf(group)) == 0 {
			continue
		}

		count, err := n.unread.UnreadCount(ctx, userID)
		if err != nil {
			n.logger.WarnContext(ctx, "Failed to count unread messages", "user_id", userID, "error", err)
		}
		payload, err := json.Marshal(Notification{
			Type:           TypeNewMessage,
			RoomID:         e.RoomID,
			MessageID:      e.MessageID,
			SenderID:       e.SenderID,
			SenderUsername: e.SenderUsername,
			Message:        e.Content,
			Timestamp:      chat.Timestamp(e.CreatedAt),
			UnreadCount:    count,
		})
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}

		delivered := n.manager.Deliver(group, payload)
		n.logger.DebugContext(ctx, "Inbox notification sent", "user_id", userID, "message_id", e.MessageID, "delivered", delivered)
	}
	return nil
}

// Shutdown stops listening for messages.
func (n *Notifier) Shutdown(context.Context) error {
	n.cancel()
	return nil
}
