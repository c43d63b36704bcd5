package domain

import (
	"context"
	"slices"
	"strconv"
	"time"
)

// RoomPrefix starts every canonical room name.
const RoomPrefix = "chat_"

// Room is a durable 1:1 conversation channel.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// HasParticipant reports whether userID is a member of the room.
func (r *Room) HasParticipant(userID string) bool {
	return slices.Contains(r.Participants, userID)
}

// OtherParticipant returns the first participant that is not userID.
func (r *Room) OtherParticipant(userID string) string {
	for _, p := range r.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// SameParticipants reports whether the room's members are exactly a and b.
func (r *Room) SameParticipants(a, b string) bool {
	if len(r.Participants) != 2 {
		return false
	}
	lo, hi := SortPair(a, b)
	got := slices.Clone(r.Participants)
	slices.SortFunc(got, compareIDs)
	return got[0] == lo && got[1] == hi
}

// RoomName returns the canonical room key for two users. The same pair always
// yields the same name regardless of argument order.
func RoomName(a, b string) string {
	lo, hi := SortPair(a, b)
	return RoomPrefix + lo + "_" + hi
}

// SortPair orders two user identifiers. Identifiers that are both base-10
// integers compare numerically so "2" sorts before "10"; ties on value fall
// back to byte order.
func SortPair(a, b string) (string, string) {
	if compareIDs(a, b) <= 0 {
		return a, b
	}
	return b, a
}

func compareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		// Equal values spelled differently ("007", "7") are distinct ids.
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// RoomRepository persists rooms and their participant sets.
type RoomRepository interface {
	FindByID(ctx context.Context, id string) (*Room, error)
	FindByName(ctx context.Context, name string) (*Room, error)
	// Create stores the room with its participants atomically. A duplicate name
	// fails with ErrAlreadyExists.
	Create(ctx context.Context, room *Room) (*Room, error)
	ListForUser(ctx context.Context, userID string) ([]*Room, error)
	Touch(ctx context.Context, id string, at time.Time) error
}
