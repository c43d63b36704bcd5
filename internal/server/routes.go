package server

import (
	"context"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/samber/do/v2"
)

// RegisterRoutes mounts the public routes and boots the modules on the
// authenticated group.
func (s *Server) RegisterRoutes(ctx context.Context) error {
	storage, err := do.Invoke[*app.Storage](s.Root)
	if err != nil {
		return err
	}
	manager := do.MustInvoke[*chat.Manager](s.Root)

	s.E.GET("/health", handlers.NewHealthHandler(storage, manager).Health)

	if s.Cfg.GetDevLogin() {
		s.logger.Warn("Development login enabled at POST /session")
		s.E.POST("/session", handlers.NewSessionHandler(storage.Users).Login, middleware.RateLimiter())
	}

	authed := s.E.Group("", middleware.Identity(storage.Users, s.Cfg.GetTrustedHeader()))
	return s.bootModules(ctx, authed)
}
