package chat

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/inbox"
	"github.com/nfrund/parley/internal/messages"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/module"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/rooms"
	"github.com/nfrund/parley/internal/websocket"
	"github.com/samber/do/v2"
)

// ChatModule serves rooms, messages and the chat and inbox sockets.
type ChatModule struct {
	module.BaseModule
}

func New() *ChatModule {
	return &ChatModule{}
}

func (m *ChatModule) Name() string {
	return "chat"
}

// Register provides the inbox notifier and the socket handler.
func (m *ChatModule) Register(i do.Injector) error {
	do.Provide(i, func(i do.Injector) (*inbox.Notifier, error) {
		return inbox.NewNotifier(
			do.MustInvoke[*pubsub.WatermillBus](i),
			do.MustInvoke[*rooms.Registry](i),
			do.MustInvoke[*messages.Store](i),
			do.MustInvoke[*chat.Manager](i),
			do.MustInvoke[*slog.Logger](i),
		)
	})

	do.Provide(i, func(i do.Injector) (*websocket.Handler, error) {
		cfg := do.MustInvoke[config.Provider](i)
		return websocket.NewHandler(
			do.MustInvoke[*chat.Router](i),
			websocket.WithSendBuffer(cfg.GetSendBuffer()),
			websocket.WithLogger(do.MustInvoke[*slog.Logger](i)),
		), nil
	})
	return nil
}

// Boot starts the inbox notifier and mounts the routes on the authenticated group.
func (m *ChatModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	if _, err := do.Invoke[*inbox.Notifier](i); err != nil {
		return err
	}

	ws, err := do.Invoke[*websocket.Handler](i)
	if err != nil {
		return err
	}
	ws.Register(g)

	storage := do.MustInvoke[*app.Storage](i)
	registry := do.MustInvoke[*rooms.Registry](i)
	store := do.MustInvoke[*messages.Store](i)
	router := do.MustInvoke[*chat.Router](i)

	roomHandler := handlers.NewRoomHandler(registry, storage.Users)
	messageHandler := handlers.NewMessageHandler(store, registry, router)
	limit := middleware.RateLimiter()

	api := g.Group("/api")
	api.POST("/rooms", roomHandler.CreateRoom, limit)
	api.GET("/rooms", roomHandler.ListRooms)
	api.GET("/rooms/:id/messages", messageHandler.History)
	api.POST("/rooms/:id/messages", messageHandler.Send, limit)
	api.GET("/messages/unread-count", messageHandler.UnreadCount)

	slog.Info("Chat module booted")
	return nil
}
