package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// DefaultSendBuffer is the outbound queue length of a connection.
	DefaultSendBuffer = 256
)

// Conn is one accepted socket. It implements chat.Subscriber: Send queues
// without blocking, and writePump drains the queue onto the wire.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, userID string, buffer int, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, buffer),
		logger: logger.With("conn_id", id, "user_id", userID),
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

// Send queues payload. It reports false when the queue is full or the
// connection is closing.
func (c *Conn) Send(payload []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops accepting frames. Queued frames are still written, then the
// socket is closed normally.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// terminate closes the socket at once with the given status.
func (c *Conn) terminate(code websocket.StatusCode, reason string) {
	c.Close()
	if len(reason) > 120 {
		reason = reason[:120]
	}
	_ = c.ws.Close(code, reason)
}

// readPump hands every inbound text frame to handle until the peer goes away.
// A panic while handling a frame is logged and the frame is dropped; the
// connection keeps going.
func (c *Conn) readPump(ctx context.Context, handle func(context.Context, []byte)) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				c.logger.Info("WebSocket closed normally by client")
			case errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed):
				c.logger.Debug("WebSocket read loop ended", "error", err)
			default:
				c.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		c.safeHandle(ctx, handle, data)
	}
}

func (c *Conn) safeHandle(ctx context.Context, handle func(context.Context, []byte), data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic while handling frame", "panic", r)
		}
	}()
	handle(ctx, data)
}

// writePump writes queued frames and keeps the peer alive with pings until
// the queue is closed or a write fails.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close(websocket.StatusNormalClosure, "connection closed")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.ws.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.ws.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("WebSocket ping failed", "error", err)
				return
			}
		}
	}
}
