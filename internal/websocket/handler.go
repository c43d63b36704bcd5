// Package websocket exposes the chat router over WebSocket connections.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/middleware"
)

// Handler upgrades authenticated requests to chat and inbox sockets.
type Handler struct {
	router         *chat.Router
	sendBuffer     int
	originPatterns []string
	logger         *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithSendBuffer sets the outbound queue length of each connection.
func WithSendBuffer(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithOriginPatterns restricts the accepted Origin hosts. Without it any
// origin is accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.originPatterns = patterns }
}

// WithLogger sets the handler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(router *chat.Router, opts ...Option) *Handler {
	h := &Handler{
		router:     router,
		sendBuffer: DefaultSendBuffer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "websocket")
	return h
}

// Register mounts the socket endpoints on g. g must already run the
// Identity middleware.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/ws/chat/:roomID", h.ServeChat)
	g.GET("/ws/inbox", h.ServeInbox)
}

func (h *Handler) accept(c echo.Context) (*websocket.Conn, error) {
	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if len(h.originPatterns) == 0 {
		opts.InsecureSkipVerify = true
	}
	return websocket.Accept(c.Response(), c.Request(), opts)
}

// ServeChat joins the caller to a room. Frames read from the socket go to
// the session; a join that fails the membership check closes the socket
// with a policy violation, and one whose history replay overflows the send
// buffer closes with try-again-later.
func (h *Handler) ServeChat(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	roomID := c.Param("roomID")

	ws, err := h.accept(c)
	if err != nil {
		h.logger.Error("Failed to accept WebSocket connection", "error", err, "user_id", user.ID)
		return nil
	}

	ctx := c.Request().Context()
	conn := newConn(ws, user.ID, h.sendBuffer, h.logger.With("room_id", roomID))

	sess, err := h.router.Open(ctx, conn, user, roomID)
	if err != nil {
		conn.logger.Warn("Chat join rejected", "error", err)
		conn.terminate(joinStatus(err), joinReason(err))
		return nil
	}
	go conn.writePump()

	conn.readPump(ctx, func(ctx context.Context, data []byte) {
		// Handle reports rejected frames to the sender itself.
		_ = sess.Handle(ctx, data)
	})

	sess.Close(context.WithoutCancel(ctx))
	conn.Close()
	return nil
}

// ServeInbox attaches the caller to their inbox group until the socket closes.
// Inbound frames are ignored.
func (h *Handler) ServeInbox(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	ws, err := h.accept(c)
	if err != nil {
		h.logger.Error("Failed to accept WebSocket connection", "error", err, "user_id", user.ID)
		return nil
	}

	ctx := c.Request().Context()
	conn := newConn(ws, user.ID, h.sendBuffer, h.logger.With("group", chat.InboxGroup(user.ID)))
	h.router.AttachInbox(ctx, conn)
	go conn.writePump()

	conn.readPump(ctx, func(context.Context, []byte) {})

	h.router.DetachInbox(context.WithoutCancel(ctx), conn)
	conn.Close()
	return nil
}

func joinStatus(err error) websocket.StatusCode {
	if errors.Is(err, chat.ErrSlowConsumer) {
		return websocket.StatusTryAgainLater
	}
	return websocket.StatusPolicyViolation
}

func joinReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrSlowConsumer):
		return "history exceeds send buffer"
	case errors.Is(err, domain.ErrNotFound):
		return "room not found"
	case errors.Is(err, domain.ErrNotParticipant):
		return "not a participant"
	default:
		return "join failed"
	}
}
