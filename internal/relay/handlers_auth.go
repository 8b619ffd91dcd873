package relay

import (
	"context"
	"errors"
)

func handleAuth(ctx context.Context, h *Hub, conn Conn, env Envelope) {
	username := env.String("username")
	password := env.String("password")
	if username == "" || password == "" {
		h.Send(conn, Notice{Type: TypeAuthFail, Msg: "empty credentials"})
		h.closeConn(conn, ClosePolicyViolation, "Auth failed")
		return
	}

	identity, err := h.auth.Authenticate(ctx, username, password)
	if err != nil {
		msg := "bad credentials"
		if !errors.Is(err, ErrInvalidCredentials) {
			msg = "service unavailable"
			h.log.Error().Err(err).Str("conn_id", conn.ID()).Str("username", username).Msg("authentication failed")
		}
		h.Send(conn, Notice{Type: TypeAuthFail, Msg: msg})
		h.closeConn(conn, ClosePolicyViolation, "Auth failed")
		return
	}

	h.startSession(ctx, conn, identity, TypeAuthOK)
	h.audited(h.audit.RecordLogin(ctx, identity.Username), "login", conn)
}

func handleRegister(ctx context.Context, h *Hub, conn Conn, env Envelope) {
	username := env.String("username")
	fullName := env.String("fullName")
	password := env.String("password")
	if username == "" || password == "" {
		h.Send(conn, Notice{Type: TypeRegisterFail, Msg: "empty credentials"})
		return
	}

	identity, err := h.auth.Register(ctx, username, fullName, password)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, ErrUsernameTaken):
			msg = "username already exists"
		case errors.Is(err, ErrPasswordTooLong):
			msg = "password too long"
		default:
			msg = "service unavailable"
			h.log.Error().Err(err).Str("conn_id", conn.ID()).Str("username", username).Msg("registration failed")
		}
		h.Send(conn, Notice{Type: TypeRegisterFail, Msg: msg})
		return
	}

	h.startSession(ctx, conn, identity, TypeRegisterOK)
	h.audited(h.audit.RecordSystem(ctx, "user registered: "+identity.Username), "register", conn)
	h.audited(h.audit.RecordLogin(ctx, identity.Username), "login", conn)
}

// startSession binds identity to conn, acknowledges with ackType, replays
// history and refreshes everyone's user list.
func (h *Hub) startSession(ctx context.Context, conn Conn, identity Identity, ackType string) {
	if prev, ok := h.sessions.Put(conn, identity); ok && prev.Username != identity.Username {
		// Room membership is keyed by name; the old one must not outlive it.
		if removed, nowEmpty := h.room.LeaveConn(prev.Username, conn); removed {
			h.leftRoom(ctx, conn, prev.Username, nowEmpty)
		}
	}
	if !conn.IsOpen() {
		// Closed raced ahead of this frame; it will not run again.
		h.sessions.Remove(conn)
		return
	}
	h.Send(conn, UserNotice{Type: ackType, Username: identity.Username})

	items, err := h.history.RecentHistory(ctx, h.historyLimit)
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("history unavailable; sending empty history")
		items = nil
	}
	if items == nil {
		items = []HistoryItem{}
	}
	h.Send(conn, HistoryMessage{Type: TypeHistory, Items: items})

	h.broadcastUserList()
	h.log.Info().
		Str("conn_id", conn.ID()).
		Str("username", identity.Username).
		Int("sessions", h.sessions.Len()).
		Msg("session started")
}
