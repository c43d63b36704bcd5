package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/pubsub"
)

// DefaultHistoryLimit is how many messages a joining connection is replayed.
const DefaultHistoryLimit = 50

// MessageStore is the durable side of the router; messages.Store implements it.
type MessageStore interface {
	Append(ctx context.Context, roomID, senderID, content string) (*domain.Message, error)
	History(ctx context.Context, roomID string, limit int, before string) ([]*domain.Message, error)
}

// RoomLookup resolves rooms for membership checks; rooms.Registry implements it.
type RoomLookup interface {
	Room(ctx context.Context, roomID string) (*domain.Room, error)
}

// Router persists inbound messages and fans them out to the room's live
// subscribers. Append and fan-out for a room run under that room's lock, so
// every subscriber sees messages in persist order. Rooms never wait on each other.
type Router struct {
	store        MessageStore
	rooms        RoomLookup
	manager      *Manager
	bus          pubsub.Publisher
	seq          *sequencer
	historyLimit int
	sendNack     bool
	logger       *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithHistoryLimit sets how many messages Open replays.
func WithHistoryLimit(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// WithSendNack makes sessions answer dropped messages with an error frame.
func WithSendNack(enabled bool) RouterOption {
	return func(r *Router) { r.sendNack = enabled }
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter wires a Router. bus receives lifecycle and message events.
func NewRouter(store MessageStore, rooms RoomLookup, manager *Manager, bus pubsub.Publisher, opts ...RouterOption) *Router {
	r := &Router{
		store:        store,
		rooms:        rooms,
		manager:      manager,
		bus:          bus,
		seq:          newSequencer(),
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default().With("component", "chat_router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Manager returns the connection manager the router delivers through.
func (r *Router) Manager() *Manager {
	return r.manager
}

// Open joins sub to the room on behalf of user. Membership failures
// (domain.ErrNotFound, domain.ErrNotParticipant) are fatal: the returned
// session is already closed and the error must end the connection. So is
// ErrSlowConsumer, when the replay does not fit sub's queue; sub is closed
// and never registered.
//
// The history replay and the registration happen under the room lock, so the
// connection sees every message exactly once: either in the replay or live.
func (r *Router) Open(ctx context.Context, sub Subscriber, user *domain.User, roomID string) (*Session, error) {
	s := newSession(r, sub, user, roomID)

	room, err := r.rooms.Room(ctx, roomID)
	if err != nil {
		s.state.Store(int32(StateClosed))
		return s, err
	}
	if !room.HasParticipant(user.ID) {
		s.state.Store(int32(StateClosed))
		return s, fmt.Errorf("user %s joining room %s: %w", user.ID, roomID, domain.ErrNotParticipant)
	}

	unlock := r.seq.lock(room.ID)
	replayed, err := r.Replay(ctx, sub, room.ID)
	if errors.Is(err, ErrSlowConsumer) {
		unlock()
		sub.Close()
		s.state.Store(int32(StateClosed))
		r.logger.WarnContext(ctx, "History replay overflowed the send queue", "room_id", room.ID, "conn_id", sub.ID(), "replayed", replayed)
		return s, fmt.Errorf("user %s joining room %s: %w", user.ID, room.ID, err)
	}
	if err != nil {
		r.logger.WarnContext(ctx, "History replay failed", "room_id", room.ID, "conn_id", sub.ID(), "replayed", replayed, "error", err)
	}
	r.manager.Register(sub, room.ID)
	unlock()

	s.state.Store(int32(StateActive))
	r.logger.InfoContext(ctx, "Chat session opened", "room_id", room.ID, "user_id", user.ID, "conn_id", sub.ID(), "replayed", replayed)

	r.publish(ctx, func() error {
		return pubsub.Publish(ctx, r.bus, ConnectionOpened, user.ID, ConnectionEvent{
			ConnectionID: sub.ID(), UserID: user.ID, Group: room.ID, Kind: KindRoom,
		})
	})
	return s, nil
}

// Send appends content to the room as senderID and broadcasts the stored
// message to every subscriber of the room, the sender's own connections
// included. Nothing is broadcast unless the append succeeded. MessageCreated
// is published under the room lock, so the event feed follows persist order.
func (r *Router) Send(ctx context.Context, roomID, senderID, content string) (*domain.Message, error) {
	unlock := r.seq.lock(roomID)
	defer unlock()

	msg, err := r.store.Append(ctx, roomID, senderID, content)
	if err != nil {
		return nil, err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	delivered := r.manager.Deliver(roomID, payload)

	r.logger.DebugContext(ctx, "Message broadcast", "room_id", roomID, "message_id", msg.ID, "user_id", senderID, "delivered", delivered)
	r.publish(ctx, func() error {
		return pubsub.Publish(ctx, r.bus, MessageCreated, senderID, MessageCreatedEvent{
			MessageID:      msg.ID,
			RoomID:         msg.RoomID,
			SenderID:       msg.SenderID,
			SenderUsername: msg.SenderUsername,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
			Delivered:      delivered,
		})
	})
	return msg, nil
}

// AttachInbox registers sub in its owner's inbox group.
func (r *Router) AttachInbox(ctx context.Context, sub Subscriber) {
	group := InboxGroup(sub.UserID())
	r.manager.Register(sub, group)
	r.publish(ctx, func() error {
		return pubsub.Publish(ctx, r.bus, ConnectionOpened, sub.UserID(), ConnectionEvent{
			ConnectionID: sub.ID(), UserID: sub.UserID(), Group: group, Kind: KindInbox,
		})
	})
}

// DetachInbox undoes AttachInbox. Detaching twice is harmless.
func (r *Router) DetachInbox(ctx context.Context, sub Subscriber) {
	if !r.manager.Unregister(sub) {
		return
	}
	r.publish(ctx, func() error {
		return pubsub.Publish(ctx, r.bus, ConnectionClosed, sub.UserID(), ConnectionEvent{
			ConnectionID: sub.ID(), UserID: sub.UserID(), Group: InboxGroup(sub.UserID()), Kind: KindInbox,
		})
	})
}

func (r *Router) publish(ctx context.Context, fn func() error) {
	if r.bus == nil {
		return
	}
	if err := fn(); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish chat event", "error", err)
	}
}
