package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Start runs the HTTP server until a shutdown signal arrives, ctx is done or
// the listener fails, then shuts everything down within 10 seconds.
func (s *Server) Start(ctx context.Context) error {
	addr := s.Cfg.GetServerAddr()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		waitForShutdown(sigCtx)
		cancel()
	}()

	var listenErr error
	select {
	case listenErr = <-errCh:
		s.logger.Error("Server stopped", "error", listenErr)
	case <-sigCtx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return errors.Join(listenErr, s.Shutdown(shutdownCtx))
}
