package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/pubsub"
)

// State is where a chat session is in its life.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session is one connection's membership in a room.
type Session struct {
	router    *Router
	sub       Subscriber
	user      *domain.User
	roomID    string
	state     atomic.Int32
	closeOnce sync.Once
}

func newSession(r *Router, sub Subscriber, user *domain.User, roomID string) *Session {
	s := &Session{router: r, sub: sub, user: user, roomID: roomID}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) State() State   { return State(s.state.Load()) }
func (s *Session) RoomID() string { return s.roomID }
func (s *Session) User() *domain.User {
	return s.user
}

// Handle processes one inbound frame. Every failure is local to the frame:
// it is dropped, logged and returned, and the session stays active.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	if s.State() != StateActive {
		return ErrSessionClosed
	}

	var in InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return s.reject(ctx, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if err := domain.Validate(in); err != nil {
		return s.reject(ctx, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if in.SenderID != s.user.ID {
		return s.reject(ctx, fmt.Errorf("%w: got %q", ErrSenderMismatch, in.SenderID))
	}

	if _, err := s.router.Send(ctx, s.roomID, s.user.ID, in.Message); err != nil {
		return s.reject(ctx, err)
	}
	return nil
}

func (s *Session) reject(ctx context.Context, err error) error {
	log := s.router.logger.With("room_id", s.roomID, "user_id", s.user.ID, "conn_id", s.sub.ID(), "error", err)
	if isClientError(err) {
		log.WarnContext(ctx, "Dropped inbound message")
	} else {
		log.ErrorContext(ctx, "Failed to store inbound message")
	}

	if s.router.sendNack {
		s.sub.Send(encodeError(err))
	}
	return err
}

func isClientError(err error) bool {
	for _, target := range []error{
		ErrMalformed, ErrSenderMismatch,
		domain.ErrEmptyContent, domain.ErrContentTooLong,
		domain.ErrNotParticipant, domain.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Close leaves the room. It is idempotent and safe on a session that never
// became active.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		prev := State(s.state.Swap(int32(StateClosed)))
		if prev != StateActive {
			return
		}
		s.router.manager.Unregister(s.sub)
		s.router.logger.InfoContext(ctx, "Chat session closed", "room_id", s.roomID, "user_id", s.user.ID, "conn_id", s.sub.ID())
		s.router.publish(ctx, func() error {
			return pubsub.Publish(ctx, s.router.bus, ConnectionClosed, s.user.ID, ConnectionEvent{
				ConnectionID: s.sub.ID(), UserID: s.user.ID, Group: s.roomID, Kind: KindRoom,
			})
		})
	})
}
