package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/middleware"
)

// SessionHandler is the development login. Real deployments authenticate in
// a fronting proxy and pass the user id in the trusted header instead.
type SessionHandler struct {
	users domain.UserRepository
}

func NewSessionHandler(users domain.UserRepository) *SessionHandler {
	return &SessionHandler{users: users}
}

// Login binds an existing user to the caller's cookie session.
func (h *SessionHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.FindByID(c.Request().Context(), req.UserID)
	if err != nil {
		return apiError(err)
	}
	if err := middleware.Login(c, user.ID); err != nil {
		return apiError(err)
	}
	middleware.FromContext(c.Request().Context()).Info("Development login", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}
