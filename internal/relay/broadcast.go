package relay

// Send encodes msg and queues it on conn. It reports whether the frame was
// accepted; closed connections and full queues are logged and skipped.
func (h *Hub) Send(conn Conn, msg any) bool {
	payload, err := Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("dropping unencodable message")
		return false
	}
	return h.sendRaw(conn, payload)
}

func (h *Hub) sendRaw(conn Conn, payload []byte) bool {
	if !conn.IsOpen() {
		return false
	}
	if err := conn.Send(payload); err != nil {
		h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("send skipped")
		return false
	}
	return true
}

// Broadcast sends msg to every open session, the sender included, and
// returns how many connections accepted it.
func (h *Hub) Broadcast(msg any) int {
	return h.BroadcastExcept(nil, msg)
}

// BroadcastExcept sends msg to every open session other than exclude.
func (h *Hub) BroadcastExcept(exclude Conn, msg any) int {
	payload, err := Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("dropping unencodable broadcast")
		return 0
	}

	delivered := 0
	for _, conn := range h.sessions.Conns() {
		if exclude != nil && conn == exclude {
			continue
		}
		if h.sendRaw(conn, payload) {
			delivered++
		}
	}
	return delivered
}

// BroadcastRoom sends msg to every open room member other than exclude.
func (h *Hub) BroadcastRoom(exclude Conn, msg any) int {
	payload, err := Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("dropping unencodable room broadcast")
		return 0
	}

	delivered := 0
	for _, conn := range h.room.Members() {
		if exclude != nil && conn == exclude {
			continue
		}
		if h.sendRaw(conn, payload) {
			delivered++
		}
	}
	return delivered
}

// Relay sends msg to the room member registered as username. Absent or
// closed targets are dropped silently.
func (h *Hub) Relay(username string, msg any) bool {
	conn, ok := h.room.Lookup(username)
	if !ok || !conn.IsOpen() {
		return false
	}
	return h.Send(conn, msg)
}

func (h *Hub) broadcastUserList() {
	h.Broadcast(UserList{Type: TypeUserList, Users: h.sessions.Usernames()})
}
