package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

// CreateServer creates and configures an HTTP server with the specified address and handler.
// It sets reasonable timeout values for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// HTTPServer builds the http.Server for s listening on the configured address.
func (s *Server) HTTPServer() *http.Server {
	return CreateServer(s.cfg.Addr(), s.SetupRoutes())
}

// StartServer listens until the server is shut down. A graceful shutdown is
// not reported as an error.
func (s *Server) StartServer(srv *http.Server) error {
	s.log.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}

// ShutdownServer stops accepting HTTP requests, then closes every WebSocket
// with a going-away code and waits for the pumps to exit.
func (s *Server) ShutdownServer(ctx context.Context, srv *http.Server) error {
	s.log.Info().Msg("shutting down HTTP server")

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	s.clients.closeAll(relay.CloseGoingAway, "server shutting down")
	if err := s.clients.wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for clients: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Warn().Err(err).Msg("HTTP server shutdown incomplete")
		return err
	}
	s.log.Info().Msg("HTTP server shutdown completed")
	return nil
}
