package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/presence"
)

// PresenceReader is the read side of presence.Service.
type PresenceReader interface {
	OnlineUsers() []string
	GetPresence(userID string) (presence.Presence, bool)
}

// PresenceHandler handles presence-related HTTP requests
type PresenceHandler struct {
	presence PresenceReader
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(p PresenceReader) *PresenceHandler {
	return &PresenceHandler{presence: p}
}

// GetPresence returns the current online users as JSON
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	users := h.presence.OnlineUsers()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"online_users": users,
		"count":        len(users),
	})
}

// GetUserPresence returns the presence status for a specific user. Users
// the service has never seen are reported offline.
func (h *PresenceHandler) GetUserPresence(c echo.Context) error {
	userID := c.Param("userID")
	p, ok := h.presence.GetPresence(userID)
	if !ok {
		p = presence.Presence{UserID: userID, Status: presence.StatusOffline, Timestamp: time.Now().UTC()}
	}
	return c.JSON(http.StatusOK, p)
}
