package relay

import "context"

// Authenticator verifies and creates identities.
type Authenticator interface {
	// Authenticate returns ErrInvalidCredentials for unknown users and
	// wrong passwords.
	Authenticate(ctx context.Context, username, password string) (Identity, error)
	// Register returns ErrUsernameTaken when username exists.
	Register(ctx context.Context, username, fullName, password string) (Identity, error)
}

// HistorySource returns the most recent chat messages in chronological order.
type HistorySource interface {
	RecentHistory(ctx context.Context, limit int) ([]HistoryItem, error)
}

// Auditor records user and system actions. Failures never affect delivery.
type Auditor interface {
	RecordLogin(ctx context.Context, username string) error
	RecordLogout(ctx context.Context, username string) error
	RecordText(ctx context.Context, username, content string) error
	RecordFile(ctx context.Context, username string, file FileRecord) error
	RecordVideoJoin(ctx context.Context, username string) error
	RecordVideoLeave(ctx context.Context, username string) error
	RecordSystem(ctx context.Context, message string) error
}

// System audit messages emitted by the relay.
const (
	SystemRoomStarted = "video call started"
	SystemRoomEnded   = "video call ended"
)

type noHistory struct{}

func (noHistory) RecentHistory(context.Context, int) ([]HistoryItem, error) {
	return nil, nil
}

type nopAuditor struct{}

func (nopAuditor) RecordLogin(context.Context, string) error { return nil }
func (nopAuditor) RecordLogout(context.Context, string) error { return nil }
func (nopAuditor) RecordText(context.Context, string, string) error { return nil }
func (nopAuditor) RecordFile(context.Context, string, FileRecord) error { return nil }
func (nopAuditor) RecordVideoJoin(context.Context, string) error { return nil }
func (nopAuditor) RecordVideoLeave(context.Context, string) error { return nil }
func (nopAuditor) RecordSystem(context.Context, string) error { return nil }

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string, string) (Identity, error) {
	return Identity{}, ErrInvalidCredentials
}

func (denyAll) Register(context.Context, string, string, string) (Identity, error) {
	return Identity{}, ErrUsernameTaken
}
