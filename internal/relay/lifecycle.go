package relay

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Open is called by the transport once a connection is established.
func (h *Hub) Open(conn Conn) {
	h.log.Debug().Str("conn_id", conn.ID()).Msg("connection opened")
}

// Submit schedules frame for processing on its own goroutine. Frames of one
// connection may run concurrently and complete in any order.
func (h *Hub) Submit(conn Conn, frame []byte) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.process(conn, frame)
	}()
}

// Process decodes and dispatches one frame on the calling goroutine.
func (h *Hub) Process(conn Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()

	env, err := Decode(frame)
	if err != nil {
		h.Send(conn, Notice{Type: TypeError, Msg: "invalid message"})
		return err
	}
	return h.dispatcher.Dispatch(ctx, h, conn, env)
}

func (h *Hub) process(conn Conn, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("conn_id", conn.ID()).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic in message handler")
		}
	}()

	err := h.Process(conn, frame)
	if err == nil {
		return
	}
	log := h.connLogger(conn)
	if errors.Is(err, ErrUnknownType) || errors.Is(err, ErrInvalidEnvelope) {
		log.Debug().Err(err).Msg("rejected frame")
		return
	}
	log.Warn().Err(err).Msg("frame processing failed")
}

// Closed is called exactly once when a connection goes away for any reason.
// It drops the session, reconciles room membership and refreshes the user
// list of everyone still connected.
func (h *Hub) Closed(conn Conn) {
	identity, ok := h.sessions.Remove(conn)
	if !ok {
		h.log.Debug().Str("conn_id", conn.ID()).Msg("unauthenticated connection closed")
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()

	log := h.log.With().Str("conn_id", conn.ID()).Str("username", identity.Username).Logger()
	if removed, nowEmpty := h.room.LeaveConn(identity.Username, conn); removed {
		h.leftRoom(ctx, conn, identity.Username, nowEmpty)
		log.Info().Msg("left video room on disconnect")
	}

	h.broadcastUserList()
	log.Info().Int("sessions", h.sessions.Len()).Msg("session closed")
}

// Error is called by the transport for abnormal connection failures.
func (h *Hub) Error(conn Conn, err error) {
	h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("connection error")
}

// Shutdown waits for in-flight frames until ctx expires, then cancels the
// contexts handed to collaborators.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		h.log.Info().Msg("relay drained")
		return nil
	case <-ctx.Done():
		h.cancel()
		h.log.Warn().Msg("relay shutdown timed out with handlers still running")
		return ctx.Err()
	}
}
