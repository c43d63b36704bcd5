package handlers

import (
	"time"

	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/domain"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomResponse is a room as seen by one of its participants.
type RoomResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Participants  []string  `json:"participants"`
	OtherUserID   string    `json:"other_user_id"`
	OtherUsername string    `json:"other_username,omitempty"`
	OtherOnline   bool      `json:"other_online"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
}

// NewRoomResponse builds the DTO for viewerID. other may be nil when the
// other participant could not be loaded.
func NewRoomResponse(room *domain.Room, viewerID string, other *domain.User) *RoomResponse {
	r := &RoomResponse{
		ID:           room.ID,
		Name:         room.Name,
		Participants: room.Participants,
		OtherUserID:  room.OtherParticipant(viewerID),
		CreatedAt:    room.CreatedAt,
		LastActivity: room.LastActivity,
	}
	if other != nil {
		r.OtherUsername = other.Username
		r.OtherOnline = other.IsOnline
	}
	return r
}

// MessageResponse is one history entry. It carries the same fields as the
// chat_message socket frame plus the read flag.
type MessageResponse struct {
	MessageID      string `json:"message_id"`
	RoomID         string `json:"room_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
	IsRead         bool   `json:"is_read"`
}

func NewMessageResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		MessageID:      m.ID,
		RoomID:         m.RoomID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		Message:        m.Content,
		Timestamp:      chat.Timestamp(m.CreatedAt),
		IsRead:         m.IsRead,
	}
}

// HistoryResponse is a page of history, oldest first. NextBefore is the
// cursor for the next older page; it is empty on the last page.
type HistoryResponse struct {
	RoomID     string             `json:"room_id"`
	Messages   []*MessageResponse `json:"messages"`
	NextBefore string             `json:"next_before,omitempty"`
	MarkedRead int                `json:"marked_read"`
}

// UnreadResponse is the body of GET /api/messages/unread-count.
type UnreadResponse struct {
	UnreadCount int `json:"unread_count"`
}
