package relay

import "context"

// signalHandler relays one WebRTC handshake payload to the room member
// named in "to".
type signalHandler struct {
	payloadKey string
}

func (s signalHandler) Handle(_ context.Context, h *Hub, conn Conn, env Envelope) {
	identity, ok := h.requireSession(conn, env.Type)
	if !ok {
		return
	}
	to := env.String("to")
	if to == "" {
		return
	}

	msg := SignalMessage{Type: env.Type, From: identity.Username}
	payload := env.Raw(s.payloadKey)
	switch s.payloadKey {
	case "offer":
		msg.Offer = payload
	case "answer":
		msg.Answer = payload
	case "candidate":
		msg.Candidate = payload
	}

	if !h.Relay(to, msg) {
		h.log.Debug().Str("conn_id", conn.ID()).Str("type", env.Type).Str("to", to).Msg("signaling target not in room; dropped")
	}
}
