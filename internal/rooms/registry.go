// Package rooms maps a pair of users to their durable conversation room.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/oklog/ulid/v2"
)

// Registry creates and resolves rooms. It is safe for concurrent use: the
// repository's unique room name is the only coordination point.
type Registry struct {
	rooms  domain.RoomRepository
	users  domain.UserRepository
	policy Authorizer
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithAuthorizer replaces the default OpenPolicy.
func WithAuthorizer(a Authorizer) Option {
	return func(r *Registry) { r.policy = a }
}

// WithLogger sets the registry's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a Registry over the given repositories.
func NewRegistry(rooms domain.RoomRepository, users domain.UserRepository, opts ...Option) *Registry {
	r := &Registry{
		rooms:  rooms,
		users:  users,
		policy: OpenPolicy{},
		logger: slog.Default().With("component", "rooms"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreateRoom returns the room shared by userA and userB, creating it on
// first contact. Concurrent callers for the same pair all get the same room.
func (r *Registry) GetOrCreateRoom(ctx context.Context, userA, userB string) (*domain.Room, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, fmt.Errorf("a room needs two distinct users: %w", domain.ErrInvalidInput)
	}

	if err := r.policy.CanChat(ctx, userA, userB); err != nil {
		return nil, err
	}

	name := domain.RoomName(userA, userB)

	room, err := r.rooms.FindByName(ctx, name)
	switch {
	case err == nil:
		return r.checkPair(room, userA, userB)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	for _, id := range []string{userA, userB} {
		if _, err := r.users.FindByID(ctx, id); err != nil {
			return nil, fmt.Errorf("participant %s: %w", id, err)
		}
	}

	now := r.now()
	lo, hi := domain.SortPair(userA, userB)
	created, err := r.rooms.Create(ctx, &domain.Room{
		ID:           ulid.Make().String(),
		Name:         name,
		Participants: []string{lo, hi},
		CreatedAt:    now,
		LastActivity: now,
	})
	if err == nil {
		r.logger.InfoContext(ctx, "Room created", "event", "room_created", "room_id", created.ID, "room_name", name)
		return created, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, err
	}

	// Lost the race to the other participant: their row is the room.
	r.logger.DebugContext(ctx, "Room creation raced, fetching winner", "event", "room_create_race", "room_name", name)
	room, err = r.rooms.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("room %s vanished after conflict (%v): %w", name, err, domain.ErrConflict)
	}
	return r.checkPair(room, userA, userB)
}

func (r *Registry) checkPair(room *domain.Room, a, b string) (*domain.Room, error) {
	if !room.SameParticipants(a, b) {
		return nil, fmt.Errorf("room %s has unexpected participants %v: %w", room.Name, room.Participants, domain.ErrConflict)
	}
	return room, nil
}

// Room returns the room with the given id.
func (r *Registry) Room(ctx context.Context, roomID string) (*domain.Room, error) {
	return r.rooms.FindByID(ctx, roomID)
}

// IsParticipant reports whether userID belongs to the room. A missing room is
// an error, not a false.
func (r *Registry) IsParticipant(ctx context.Context, userID, roomID string) (bool, error) {
	room, err := r.rooms.FindByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.HasParticipant(userID), nil
}

// ParticipantsOf returns the user ids of the room's members.
func (r *Registry) ParticipantsOf(ctx context.Context, roomID string) ([]string, error) {
	room, err := r.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), room.Participants...), nil
}

// RoomsFor lists the user's rooms, most recently active first.
func (r *Registry) RoomsFor(ctx context.Context, userID string) ([]*domain.Room, error) {
	return r.rooms.ListForUser(ctx, userID)
}
