package server

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// outbound is one queued write: a text frame, or a close frame when close
// is set.
type outbound struct {
	data   []byte
	close  bool
	code   int
	reason string
}

// Client is one WebSocket connection. It implements relay.Conn: writes are
// queued and drained by writePump, frames read by readPump are handed to the
// relay hub.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *relay.Hub
	addr string
	log  zerolog.Logger

	send     chan outbound
	done     chan struct{}
	doneOnce sync.Once
	open     atomic.Bool

	maxMessageSize int64
	idleTimeout    time.Duration
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

var _ relay.Conn = (*Client)(nil)

// NewClient creates a Client for an upgraded connection.
func NewClient(conn *websocket.Conn, hub *relay.Hub, addr string, cfg Config, log zerolog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	c := &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		addr:           addr,
		log:            log.With().Str("conn_id", id).Str("remote_addr", addr).Logger(),
		send:           make(chan outbound, sendQueueSize),
		done:           make(chan struct{}),
		maxMessageSize: cfg.MaxMessageSize,
		idleTimeout:    cfg.IdleTimeout,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
	c.open.Store(true)
	return c
}

// ID implements relay.Conn.
func (c *Client) ID() string { return c.id }

// IsOpen implements relay.Conn.
func (c *Client) IsOpen() bool { return c.open.Load() }

// Send implements relay.Conn. A full queue means the peer is not reading;
// the connection is then dropped with CloseTryAgainLater.
func (c *Client) Send(data []byte) error {
	if !c.open.Load() {
		return relay.ErrConnClosed
	}
	select {
	case c.send <- outbound{data: data}:
		return nil
	case <-c.done:
		return relay.ErrConnClosed
	default:
	}

	c.log.Warn().Int("queue", sendQueueSize).Msg("send queue full; dropping slow client")
	c.abort(relay.CloseTryAgainLater, "send queue full")
	return relay.ErrSendQueueFull
}

// Close implements relay.Conn. The close frame is queued behind any pending
// writes, so a failure notice sent just before it is still delivered.
func (c *Client) Close(code int, reason string) error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}
	select {
	case c.send <- outbound{close: true, code: code, reason: reason}:
	case <-c.done:
	default:
		c.abortLocked(code, reason)
	}
	return nil
}

// abort closes without waiting for the queue to drain.
func (c *Client) abort(code int, reason string) {
	if !c.open.CompareAndSwap(true, false) {
		return
	}
	c.abortLocked(code, reason)
}

func (c *Client) abortLocked(code int, reason string) {
	if c.conn != nil {
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil && !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("error writing close frame")
		}
	}
	c.stop()
}

// stop releases writePump. Safe to call more than once.
func (c *Client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

// pingPeriod is how often writePump pings; it must be shorter than the idle
// timeout so a healthy peer's pong always arrives in time.
func (c *Client) pingPeriod() time.Duration {
	return c.idleTimeout * 9 / 10
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
		c.log.Debug().Err(err).Msg("error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			c.log.Debug().Err(err).Msg("error setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError logs the reason the read loop ends.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.maxMessageSize).Msg("message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Debug().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("connection closed")
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.hub.Error(c, err)
	default:
		c.log.Info().Err(err).Msg("WebSocket read ended")
	}
}

// checkRateLimit reports whether the next frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn().
			Int("burst", c.rateLimit.Burst).
			Dur("interval", c.rateLimit.RefillInterval).
			Msg("rate limit exceeded; discarding message")
		return false
	}
	return true
}

// readPump reads frames until the connection fails, then tells the hub the
// connection is gone. It runs on the goroutine that called serve.
func (c *Client) readPump() {
	defer func() {
		c.open.Store(false)
		c.stop()
		c.hub.Closed(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("error closing connection in readPump")
		}
	}()

	c.setupReadConnection()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}
		c.hub.Submit(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case msg := <-c.send:
		if msg.close {
			c.writeCloseMessage(msg.code, msg.reason)
			return false
		}
		return c.writeTextMessage(msg.data)
	case <-ticker.C:
		return c.handlePing()
	case <-c.done:
		return false
	}
}

// closeConnection closes the socket, which also ends readPump.
func (c *Client) closeConnection() {
	c.open.Store(false)
	c.stop()
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("error closing connection in writePump")
	}
}

func (c *Client) writeCloseMessage(code int, reason string) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Debug().Err(err).Msg("error setting write deadline")
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Int("code", code).Msg("error writing close message")
	}
}

// writeTextMessage writes one envelope per frame.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Debug().Err(err).Msg("error setting write deadline")
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("error writing message")
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Debug().Err(err).Msg("error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("error writing ping message")
		}
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}
