package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/messages"
	"github.com/nfrund/parley/internal/middleware"
)

// MessageStore is the part of messages.Store the message endpoints use.
type MessageStore interface {
	History(ctx context.Context, roomID string, limit int, before string) ([]*domain.Message, error)
	MarkRead(ctx context.Context, roomID, readerID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// RoomLookup resolves a room by id.
type RoomLookup interface {
	Room(ctx context.Context, roomID string) (*domain.Room, error)
}

// Sender persists and broadcasts a message; chat.Router implements it.
type Sender interface {
	Send(ctx context.Context, roomID, senderID, content string) (*domain.Message, error)
}

// MessageHandler serves history, unread counts and REST sends.
type MessageHandler struct {
	store  MessageStore
	rooms  RoomLookup
	sender Sender
}

func NewMessageHandler(store MessageStore, rooms RoomLookup, sender Sender) *MessageHandler {
	return &MessageHandler{store: store, rooms: rooms, sender: sender}
}

func (h *MessageHandler) authorize(ctx context.Context, roomID, userID string) error {
	room, err := h.rooms.Room(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(userID) {
		return fmt.Errorf("user %s in room %s: %w", userID, roomID, domain.ErrNotParticipant)
	}
	return nil
}

// History returns a page of the room's messages, oldest first, and marks the
// other participant's messages as read by the caller.
func (h *MessageHandler) History(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var q HistoryQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	ctx := c.Request().Context()
	roomID := c.Param("id")
	if err := h.authorize(ctx, roomID, user.ID); err != nil {
		return apiError(err)
	}

	msgs, err := h.store.History(ctx, roomID, q.Limit, q.Before)
	if err != nil {
		return apiError(err)
	}
	marked, err := h.store.MarkRead(ctx, roomID, user.ID)
	if err != nil {
		// The page is still useful; the unread badge will catch up on the next view.
		middleware.FromContext(ctx).Warn("Failed to mark messages read", "room_id", roomID, "error", err)
	}

	resp := HistoryResponse{
		RoomID:     roomID,
		Messages:   make([]*MessageResponse, 0, len(msgs)),
		MarkedRead: marked,
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, NewMessageResponse(m))
	}
	if len(msgs) > 0 && len(msgs) == pageSize(q.Limit) {
		resp.NextBefore = msgs[0].ID
	}
	return c.JSON(http.StatusOK, resp)
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return messages.DefaultHistoryLimit
	case limit > messages.MaxHistoryLimit:
		return messages.MaxHistoryLimit
	}
	return limit
}

// Send stores a message from the caller and broadcasts it to the room.
func (h *MessageHandler) Send(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.sender.Send(c.Request().Context(), c.Param("id"), user.ID, req.Message)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, NewMessageResponse(msg))
}

// UnreadCount returns how many messages from others the caller has not read.
func (h *MessageHandler) UnreadCount(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.store.UnreadCount(c.Request().Context(), user.ID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, UnreadResponse{UnreadCount: n})
}
