package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomName(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"lexicographic", "bob", "alice", "chat_alice_bob"},
		{"already ordered", "alice", "bob", "chat_alice_bob"},
		{"numeric ids sort numerically", "10", "2", "chat_2_10"},
		{"mixed ids fall back to lexicographic", "10", "a", "chat_10_a"},
		{"leading zeros", "7", "007", "chat_007_7"},
		{"explicit sign", "5", "+5", "chat_+5_5"},
		{"negative before positive", "3", "-3", "chat_-3_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomName(tt.a, tt.b))
			assert.Equal(t, tt.want, RoomName(tt.b, tt.a), "order of arguments must not matter")
		})
	}
}

func TestRoom_Participants(t *testing.T) {
	room := &Room{Participants: []string{"2", "10"}}

	assert.True(t, room.HasParticipant("10"))
	assert.False(t, room.HasParticipant("3"))
	assert.Equal(t, "2", room.OtherParticipant("10"))
	assert.True(t, room.SameParticipants("10", "2"))
	assert.False(t, room.SameParticipants("10", "3"))

	padded := &Room{Participants: []string{"7", "007"}}
	assert.True(t, padded.SameParticipants("7", "007"))
	assert.True(t, padded.SameParticipants("007", "7"))
}

func TestValidate_User(t *testing.T) {
	assert.NoError(t, Validate(&User{ID: "u1", Username: "Ana"}))
	assert.Error(t, Validate(&User{ID: "u1", Username: "   "}))
	assert.Error(t, Validate(&User{Username: "Ana"}))
}
