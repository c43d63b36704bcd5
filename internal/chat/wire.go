package chat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nfrund/parley/internal/domain"
)

// Frame types sent to clients.
const (
	TypeChatMessage = "chat_message"
	TypeError       = "error"
)

var (
	// ErrMalformed is returned for inbound frames that are not valid JSON or
	// miss required fields.
	ErrMalformed = errors.New("malformed chat message")
	// ErrSenderMismatch is returned when the frame's sender_id is not the
	// connection's authenticated user.
	ErrSenderMismatch = errors.New("sender_id does not match the authenticated user")
	// ErrSessionClosed is returned when a frame arrives for a closed session.
	ErrSessionClosed = errors.New("chat session is closed")
	// ErrSlowConsumer is returned when a subscriber's queue fills during replay.
	ErrSlowConsumer = errors.New("subscriber queue is full")
)

// InboundMessage is what a client sends on a chat socket.
type InboundMessage struct {
	Message  string `json:"message" validate:"required"`
	SenderID string `json:"sender_id" validate:"required"`
}

// OutboundMessage is the frame used for both live broadcast and history replay.
type OutboundMessage struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Timestamp      string `json:"timestamp"`
	MessageID      string `json:"message_id"`
	RoomID         string `json:"room_id"`
}

// ErrorFrame is the negative acknowledgement sent to a sender whose message was dropped.
type ErrorFrame struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Timestamp formats t the way every outbound frame does.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// EncodeMessage renders a stored message as an outbound frame.
func EncodeMessage(m *domain.Message) ([]byte, error) {
	return json.Marshal(OutboundMessage{
		Type:           TypeChatMessage,
		Message:        m.Content,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		Timestamp:      Timestamp(m.CreatedAt),
		MessageID:      m.ID,
		RoomID:         m.RoomID,
	})
}

// errorCode maps a dropped-message error to the code sent in an ErrorFrame.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrSenderMismatch):
		return "sender_mismatch"
	case errors.Is(err, domain.ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, domain.ErrContentTooLong):
		return "content_too_long"
	case errors.Is(err, domain.ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func encodeError(err error) []byte {
	msg := err.Error()
	if errorCode(err) == "internal" {
		msg = "message could not be stored"
	}
	data, _ := json.Marshal(ErrorFrame{Type: TypeError, Error: errorCode(err), Message: msg})
	return data
}
