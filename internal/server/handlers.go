package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency such as the database is usable.
type HealthCheck func(ctx context.Context) error

// Option customizes a Server.
type Option func(*Server)

// WithHealthCheck makes the health endpoint report 503 while check fails.
func WithHealthCheck(check HealthCheck) Option {
	return func(s *Server) { s.health = check }
}

// Server exposes the relay hub over HTTP: the WebSocket endpoint plus
// health and stats endpoints.
type Server struct {
	cfg      Config
	hub      *relay.Hub
	clients  *clientSet
	origins  *originPolicy
	upgrader websocket.Upgrader
	health   HealthCheck
	log      zerolog.Logger
}

// New creates a Server for hub.
func New(cfg *Config, hub *relay.Hub, log zerolog.Logger, opts ...Option) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	clean := cfg.sanitized()
	log = log.With().Str("component", "server").Logger()

	s := &Server{
		cfg:     clean,
		hub:     hub,
		clients: newClientSet(log),
		origins: newOriginPolicy(clean.AllowedOrigins, log),
		log:     log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config { return s.cfg }

// WebSocketHandler upgrades GET requests from allowed origins and serves the
// connection until it closes.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg, s.log)
	s.clients.serve(client)
}

// HealthHandler reports whether the server and its dependencies are up.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, "GoChat relay is unhealthy")
			return
		}
	}
	_, _ = fmt.Fprint(w, "GoChat relay is running!")
}

// Stats is the body of the stats endpoint.
type Stats struct {
	Connections int      `json:"connections"`
	Sessions    int      `json:"sessions"`
	Users       []string `json:"users"`
	RoomMembers []string `json:"room_members"`
}

// StatsHandler reports live connection, session and room counts as JSON.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := Stats{
		Connections: s.clients.Len(),
		Sessions:    s.hub.Sessions().Len(),
		Users:       s.hub.Sessions().Usernames(),
		RoomMembers: s.hub.Room().Usernames(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.log.Debug().Err(err).Msg("error writing stats response")
	}
}
