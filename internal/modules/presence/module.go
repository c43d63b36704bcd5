package presence

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/module"
	"github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/samber/do/v2"
)

// PresenceModule tracks who is online from the chat connection events.
type PresenceModule struct {
	module.BaseModule
}

func New() *PresenceModule {
	return &PresenceModule{}
}

func (m *PresenceModule) Name() string {
	return "presence"
}

func (m *PresenceModule) Register(i do.Injector) error {
	do.Provide(i, func(i do.Injector) (*presence.Service, error) {
		cfg := do.MustInvoke[config.Provider](i)
		return presence.NewService(
			do.MustInvoke[*pubsub.WatermillBus](i),
			do.MustInvoke[*app.Storage](i).Users,
			presence.WithOfflineDebounce(cfg.GetOfflineDebounce()),
			presence.WithLogger(do.MustInvoke[*slog.Logger](i)),
		)
	})
	return nil
}

// Boot subscribes the service before any socket is accepted and mounts the
// presence routes.
func (m *PresenceModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	svc, err := do.Invoke[*presence.Service](i)
	if err != nil {
		return err
	}

	h := handlers.NewPresenceHandler(svc)
	g.GET("/api/presence", h.GetPresence)
	g.GET("/api/presence/:userID", h.GetUserPresence)
	return nil
}
