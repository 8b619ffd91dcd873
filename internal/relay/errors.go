package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by an Authenticator when the username
	// is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned by an Authenticator when registering a
	// username that already exists.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrPasswordTooLong is returned by an Authenticator when a new password
	// exceeds what it can store.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidEnvelope is returned by Decode for frames that are not a JSON
	// object with a non-empty string "type".
	ErrInvalidEnvelope = errors.New("invalid envelope")
	// ErrUnknownType matches any *UnknownTypeError.
	ErrUnknownType = errors.New("unknown message type")
	// ErrConnClosed is returned by Conn.Send after the connection closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendQueueFull is returned by Conn.Send when the outbound queue of a
	// slow consumer overflows.
	ErrSendQueueFull = errors.New("send queue full")
)

// UnknownTypeError reports an envelope type with no registered handler.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %s", e.Type)
}

// Is lets errors.Is(err, ErrUnknownType) match.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}
