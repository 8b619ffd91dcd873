package relay

import "context"

func handleLogout(ctx context.Context, h *Hub, conn Conn, _ Envelope) {
	if identity, ok := h.sessions.Get(conn); ok {
		h.audited(h.audit.RecordLogout(ctx, identity.Username), "logout", conn)
	}
	h.closeConn(conn, CloseNormalClosure, "bye")
}
