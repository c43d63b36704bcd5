// Package messages is the durable, ordered message store for chat rooms.
package messages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nfrund/parley/internal/domain"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultHistoryLimit is how many messages History returns when asked for none in particular.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps a single History page.
	MaxHistoryLimit = 200
	// DefaultMaxLength is the longest accepted message, in runes.
	DefaultMaxLength = 4000
)

// Store validates and persists messages, and answers history and unread queries.
type Store struct {
	messages  domain.MessageRepository
	rooms     domain.RoomRepository
	users     domain.UserRepository
	ids       *idSource
	maxLength int
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxLength sets the longest accepted message in runes.
func WithMaxLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.ids = newIDSource(now) }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store over the given repositories.
func NewStore(messages domain.MessageRepository, rooms domain.RoomRepository, users domain.UserRepository, opts ...Option) *Store {
	s := &Store{
		messages:  messages,
		rooms:     rooms,
		users:     users,
		ids:       newIDSource(time.Now),
		maxLength: DefaultMaxLength,
		logger:    slog.Default().With("component", "messages"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates and durably stores a message. The returned message carries
// the server-assigned id and timestamp; it is committed when Append returns.
func (s *Store) Append(ctx context.Context, roomID, senderID, content string) (*domain.Message, error) {
	content = norm.NFC.String(strings.TrimSpace(content))
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if n := utf8.RuneCountInString(content); n > s.maxLength {
		return nil, fmt.Errorf("%d runes, limit %d: %w", n, s.maxLength, domain.ErrContentTooLong)
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(senderID) {
		return nil, fmt.Errorf("sender %s in room %s: %w", senderID, roomID, domain.ErrNotParticipant)
	}
	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("sender %s: %w", senderID, err)
	}

	id, ts := s.ids.next()
	msg, err := s.messages.Create(ctx, &domain.Message{
		ID:             id,
		RoomID:         room.ID,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Content:        content,
		CreatedAt:      ts,
	})
	if err != nil {
		return nil, err
	}

	// The message is already durable; a stale last_activity only affects list order.
	if err := s.rooms.Touch(ctx, room.ID, ts); err != nil {
		s.logger.WarnContext(ctx, "Failed to update room activity", "room_id", room.ID, "message_id", msg.ID, "error", err)
	}
	return msg, nil
}

// History returns up to limit of the room's most recent messages, oldest
// first. When before is a message id, only older messages are considered.
func (s *Store) History(ctx context.Context, roomID string, limit int, before string) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.messages.Recent(ctx, roomID, limit, before)
}

// MarkRead flags the other participants' messages in the room as read by readerID.
func (s *Store) MarkRead(ctx context.Context, roomID, readerID string) (int, error) {
	n, err := s.messages.MarkRead(ctx, roomID, readerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "Messages marked read", "room_id", roomID, "user_id", readerID, "count", n)
	}
	return n, nil
}

// UnreadCount counts messages from others that userID has not read yet, across all their rooms.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	rooms, err := s.rooms.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return s.messages.CountUnread(ctx, userID, ids)
}
