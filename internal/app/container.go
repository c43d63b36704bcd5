// Package app wires the application's services into a samber/do container.
package app

import (
	"context"
	"log/slog"

	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/messages"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/rooms"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the bus tracer and flushes it on shutdown.
type Telemetry struct {
	Tracer   trace.Tracer
	shutdown func(context.Context) error
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

// NewContainer provides the core services. Everything is lazy: a service is
// built on first Invoke and shut down in reverse dependency order by
// ShutdownWithContext.
func NewContainer(cfg config.Provider, logger *slog.Logger) *do.RootScope {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, logger)

	do.Provide(i, func(i do.Injector) (*Storage, error) {
		return OpenStorage(context.Background(), do.MustInvoke[config.Provider](i))
	})

	do.Provide(i, func(i do.Injector) (*Telemetry, error) {
		tracer, shutdown, err := pubsub.SetupOTel(context.Background(), pubsub.TracingConfigFrom(do.MustInvoke[config.Provider](i)))
		if err != nil {
			return nil, err
		}
		return &Telemetry{Tracer: tracer, shutdown: shutdown}, nil
	})

	do.Provide(i, func(i do.Injector) (*pubsub.WatermillBus, error) {
		cfg := do.MustInvoke[config.Provider](i)
		opts := []pubsub.BusOption{pubsub.WithBusLogger(do.MustInvoke[*slog.Logger](i))}
		if cfg.GetTracingEnabled() {
			opts = append(opts, pubsub.WithTracer(do.MustInvoke[*Telemetry](i).Tracer))
		}
		return pubsub.NewWatermillBus(opts...), nil
	})

	do.Provide(i, func(i do.Injector) (*rooms.Registry, error) {
		cfg := do.MustInvoke[config.Provider](i)
		storage := do.MustInvoke[*Storage](i)
		logger := do.MustInvoke[*slog.Logger](i)
		return rooms.NewRegistry(storage.Rooms, storage.Users,
			rooms.WithAuthorizer(Authorizer(cfg, logger)),
			rooms.WithLogger(logger.With("component", "rooms")),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*messages.Store, error) {
		cfg := do.MustInvoke[config.Provider](i)
		storage := do.MustInvoke[*Storage](i)
		return messages.NewStore(storage.Messages, storage.Rooms, storage.Users,
			messages.WithMaxLength(cfg.GetMaxMessageLength()),
			messages.WithLogger(do.MustInvoke[*slog.Logger](i).With("component", "messages")),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*chat.Manager, error) {
		return chat.NewManager(do.MustInvoke[*slog.Logger](i).With("component", "connections")), nil
	})

	do.Provide(i, func(i do.Injector) (*chat.Router, error) {
		cfg := do.MustInvoke[config.Provider](i)
		return chat.NewRouter(
			do.MustInvoke[*messages.Store](i),
			do.MustInvoke[*rooms.Registry](i),
			do.MustInvoke[*chat.Manager](i),
			do.MustInvoke[*pubsub.WatermillBus](i),
			chat.WithHistoryLimit(cfg.GetHistoryLimit()),
			chat.WithSendNack(cfg.GetSendNack()),
			chat.WithRouterLogger(do.MustInvoke[*slog.Logger](i).With("component", "chat")),
		), nil
	})

	return i
}

// Authorizer builds the room creation policy from configuration.
func Authorizer(cfg config.Provider, logger *slog.Logger) rooms.Authorizer {
	if cfg.GetChatPolicy() == config.PolicyMatch {
		logger.Info("Room creation restricted to matched pairs", "pairs", len(cfg.GetChatMatches()))
		return rooms.NewPairPolicy(cfg.GetChatMatches()...)
	}
	return rooms.OpenPolicy{}
}
