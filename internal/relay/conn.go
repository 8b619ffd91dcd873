package relay

// WebSocket close codes used by the relay (RFC 6455, section 7.4.1).
const (
	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008
	CloseTryAgainLater   = 1013
)

// Conn is one live transport connection. Implementations must be safe for
// concurrent use: handlers for the same connection may run in parallel.
type Conn interface {
	// ID returns a process-unique identifier used for logging.
	ID() string
	// Send queues a text frame. It fails once the connection is closed.
	Send(data []byte) error
	// Close starts the closing handshake with the given code. Frames queued
	// before Close are written first. Calling Close more than once is a no-op.
	Close(code int, reason string) error
	// IsOpen reports whether the connection still accepts frames.
	IsOpen() bool
}

// Identity is an authenticated user as returned by the Authenticator.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}
