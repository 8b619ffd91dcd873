package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit        = 200
	defaultCollaboratorTimeout = 5 * time.Second
)

// HubConfig wires a Hub to its collaborators. Nil collaborators are replaced
// by implementations that reject every login, return no history and record
// nothing.
type HubConfig struct {
	Authenticator Authenticator
	History       HistorySource
	Auditor       Auditor
	Dispatcher    *Dispatcher
	Logger        zerolog.Logger

	// HistoryLimit caps the history sent after login. Defaults to 200.
	HistoryLimit int
	// CollaboratorTimeout bounds the context handed to each handler.
	// Defaults to 5s.
	CollaboratorTimeout time.Duration
	// Now is the clock used for message timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Hub holds the shared state handlers operate on: the session and room
// registries, the dispatcher and the external collaborators.
type Hub struct {
	sessions   *Sessions
	room       *Room
	dispatcher *Dispatcher

	auth    Authenticator
	history HistorySource
	audit   Auditor

	log          zerolog.Logger
	historyLimit int
	timeout      time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a Hub ready to accept connections.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Authenticator == nil {
		cfg.Authenticator = denyAll{}
	}
	if cfg.History == nil {
		cfg.History = noHistory{}
	}
	if cfg.Auditor == nil {
		cfg.Auditor = nopAuditor{}
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = NewDefaultDispatcher()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:     NewSessions(),
		room:         NewRoom(),
		dispatcher:   cfg.Dispatcher,
		auth:         cfg.Authenticator,
		history:      cfg.History,
		audit:        cfg.Auditor,
		log:          cfg.Logger.With().Str("component", "relay").Logger(),
		historyLimit: cfg.HistoryLimit,
		timeout:      cfg.CollaboratorTimeout,
		now:          cfg.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Sessions returns the connection registry.
func (h *Hub) Sessions() *Sessions { return h.sessions }

// Room returns the video room registry.
func (h *Hub) Room() *Room { return h.room }

// Dispatcher returns the handler registry.
func (h *Hub) Dispatcher() *Dispatcher { return h.dispatcher }

// Logger returns the hub logger.
func (h *Hub) Logger() zerolog.Logger { return h.log }

func (h *Hub) timestamp() int64 {
	return h.now().UnixMilli()
}

// connLogger returns a logger tagged with the connection and, when known,
// its username.
func (h *Hub) connLogger(conn Conn) zerolog.Logger {
	c := h.log.With().Str("conn_id", conn.ID())
	if identity, ok := h.sessions.Get(conn); ok {
		c = c.Str("username", identity.Username)
	}
	return c.Logger()
}

// requireSession returns the identity bound to conn. Connections without a
// session are closed with a policy violation.
func (h *Hub) requireSession(conn Conn, msgType string) (Identity, bool) {
	identity, ok := h.sessions.Get(conn)
	if ok {
		return identity, true
	}
	h.log.Warn().Str("conn_id", conn.ID()).Str("type", msgType).Msg("message requires authentication; closing")
	h.closeConn(conn, ClosePolicyViolation, "Not authed")
	return Identity{}, false
}

func (h *Hub) closeConn(conn Conn, code int, reason string) {
	if err := conn.Close(code, reason); err != nil {
		h.log.Debug().Err(err).Str("conn_id", conn.ID()).Int("code", code).Msg("close failed")
	}
}

// audited logs a failed collaborator call. Delivery never depends on it.
func (h *Hub) audited(err error, action string, conn Conn) {
	if err == nil {
		return
	}
	event := h.log.Warn().Err(err).Str("action", action)
	if conn != nil {
		event = event.Str("conn_id", conn.ID())
	}
	event.Msg("audit record failed")
}
