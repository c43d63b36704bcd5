package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// waitForShutdown blocks until an interrupt or terminate signal is received,
// or ctx is done.
func waitForShutdown(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

// Shutdown stops accepting requests, then shuts down the modules in reverse
// boot order and finally the container's services.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.E.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
	}

	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Shutdown(ctx); err != nil {
			s.logger.Error("Module shutdown failed", "module", s.modules[i].Name(), "error", err)
		}
	}

	if report := s.Root.ShutdownWithContext(ctx); report != nil && !report.Succeed {
		return report
	}
	return nil
}
