package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/module"
	"github.com/samber/do/v2"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E       *echo.Echo
	Cfg     config.Provider
	Root    *do.RootScope
	modules []module.Module
	logger  *slog.Logger
}

// New creates a Server over the container root and registers every module's
// services. Routes are mounted by RegisterRoutes.
func New(cfg config.Provider, root *do.RootScope, logger *slog.Logger, modules ...module.Module) (*Server, error) {
	for _, m := range modules {
		if err := m.Register(root); err != nil {
			return nil, fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
	}
	e.Use(session.Middleware(store))

	return &Server{
		E:       e,
		Cfg:     cfg,
		Root:    root,
		modules: modules,
		logger:  logger,
	}, nil
}

// Storage is a getter for the server's storage, useful for testing.
func (s *Server) Storage() *app.Storage {
	return do.MustInvoke[*app.Storage](s.Root)
}

// bootModules hands every module the authenticated route group.
func (s *Server) bootModules(ctx context.Context, g *echo.Group) error {
	for _, m := range s.modules {
		if err := m.Boot(ctx, g, s.Root); err != nil {
			return fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
		s.logger.Debug("Module booted", "module", m.Name())
	}
	return nil
}
