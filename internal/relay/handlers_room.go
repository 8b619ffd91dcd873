package relay

import "context"

func handleJoinRoom(ctx context.Context, h *Hub, conn Conn, env Envelope) {
	identity, ok := h.requireSession(conn, env.Type)
	if !ok {
		return
	}

	result := h.room.Join(identity.Username, conn)
	h.Send(conn, UserList{Type: TypeRoomUsers, Users: result.Others})

	log := h.log.With().Str("conn_id", conn.ID()).Str("username", identity.Username).Logger()
	if result.Replaced != nil {
		log.Warn().Str("replaced_conn_id", result.Replaced.ID()).Msg("room membership moved to a new connection")
	}
	if result.WasEmpty {
		h.audited(h.audit.RecordSystem(ctx, SystemRoomStarted), "room_started", conn)
		log.Info().Msg("video room started")
	}
	h.audited(h.audit.RecordVideoJoin(ctx, identity.Username), "video_join", conn)

	h.BroadcastRoom(conn, UserNotice{Type: TypeUserJoined, Username: identity.Username})

	// Closed may have run between requireSession and Join.
	if !conn.IsOpen() {
		if removed, nowEmpty := h.room.LeaveConn(identity.Username, conn); removed {
			h.leftRoom(ctx, conn, identity.Username, nowEmpty)
			log.Debug().Msg("connection closed while joining; membership undone")
		}
	}
}

func handleLeaveRoom(ctx context.Context, h *Hub, conn Conn, _ Envelope) {
	identity, ok := h.sessions.Get(conn)
	if !ok {
		return
	}
	removed, nowEmpty := h.room.Leave(identity.Username)
	if !removed {
		return
	}
	h.leftRoom(ctx, conn, identity.Username, nowEmpty)
}

// leftRoom notifies the remaining members and records the leave. conn has
// already been removed from the room.
func (h *Hub) leftRoom(ctx context.Context, conn Conn, username string, nowEmpty bool) {
	h.audited(h.audit.RecordVideoLeave(ctx, username), "video_leave", conn)
	h.BroadcastRoom(conn, UserNotice{Type: TypeUserLeft, Username: username})
	if nowEmpty {
		h.audited(h.audit.RecordSystem(ctx, SystemRoomEnded), "room_ended", conn)
		h.log.Info().Str("username", username).Msg("video room ended")
	}
}
