// Package server exposes the relay over HTTP: the websocket endpoint, a
// health check and a stats snapshot.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/signaling"
)

// Server is the relay's HTTP front end.
type Server struct {
	hub        *signaling.Hub
	httpServer *http.Server
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// New creates a Server for hub listening on cfg.Addr.
func New(cfg *config.Server, hub *signaling.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		hub:      hub,
		upgrader: newUpgrader(newOriginPolicy(cfg.AllowedOrigins, logger)),
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("relay listening", "addr", l.Addr().String())
	if err := s.httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests, then closes every websocket so each
// session runs its own teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	httpErr := s.httpServer.Shutdown(ctx)
	if httpErr != nil {
		s.logger.Error("HTTP server shutdown error", "error", httpErr)
	}

	return errors.Join(httpErr, s.hub.Shutdown(ctx))
}
