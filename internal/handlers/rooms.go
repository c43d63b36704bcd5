package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/middleware"
)

// RoomService is the part of rooms.Registry the room endpoints use.
type RoomService interface {
	GetOrCreateRoom(ctx context.Context, userA, userB string) (*domain.Room, error)
	RoomsFor(ctx context.Context, userID string) ([]*domain.Room, error)
}

// RoomHandler serves the room endpoints.
type RoomHandler struct {
	rooms RoomService
	users domain.UserRepository
}

func NewRoomHandler(rooms RoomService, users domain.UserRepository) *RoomHandler {
	return &RoomHandler{rooms: rooms, users: users}
}

// CreateRoom returns the caller's room with other_user_id, creating it on first use.
func (h *RoomHandler) CreateRoom(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateRoomRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	room, err := h.rooms.GetOrCreateRoom(ctx, user.ID, req.OtherUserID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, NewRoomResponse(room, user.ID, h.other(ctx, room, user.ID)))
}

// ListRooms returns the caller's rooms, most recently active first.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	rooms, err := h.rooms.RoomsFor(ctx, user.ID)
	if err != nil {
		return apiError(err)
	}
	out := make([]*RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewRoomResponse(room, user.ID, h.other(ctx, room, user.ID)))
	}
	return c.JSON(http.StatusOK, out)
}

// other loads the participant that is not viewerID. A failed lookup only
// leaves the username out of the response.
func (h *RoomHandler) other(ctx context.Context, room *domain.Room, viewerID string) *domain.User {
	id := room.OtherParticipant(viewerID)
	if id == "" {
		return nil
	}
	u, err := h.users.FindByID(ctx, id)
	if err != nil {
		middleware.FromContext(ctx).Warn("Failed to load room participant", "room_id", room.ID, "user_id", id, "error", err)
		return nil
	}
	return u
}
