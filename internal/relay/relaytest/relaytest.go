// Package relaytest provides in-memory doubles for the relay collaborators
// and a recording Conn, for tests of the relay and its transports.
package relaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

var connSeq atomic.Int64

// MockConn records every frame sent to it and how it was closed.
type MockConn struct {
	id string

	mu          sync.Mutex
	frames      [][]byte
	closed      bool
	closeCode   int
	closeReason string
	sendErr     error
}

// NewMockConn returns an open connection.
func NewMockConn() *MockConn {
	return &MockConn{id: fmt.Sprintf("mock-%d", connSeq.Add(1))}
}

// ID implements relay.Conn.
func (m *MockConn) ID() string { return m.id }

// Send implements relay.Conn.
func (m *MockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return relay.ErrConnClosed
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, append([]byte(nil), data...))
	return nil
}

// Close implements relay.Conn. Only the first call is recorded.
func (m *MockConn) Close(code int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.closeCode = code
	m.closeReason = reason
	return nil
}

// IsOpen implements relay.Conn.
func (m *MockConn) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// FailSends makes every following Send return err without closing.
func (m *MockConn) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// CloseCode returns the code passed to the first Close, or 0.
func (m *MockConn) CloseCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCode
}

// CloseReason returns the reason passed to the first Close.
func (m *MockConn) CloseReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeReason
}

// Frames returns copies of the raw frames received so far.
func (m *MockConn) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	frames := make([][]byte, len(m.frames))
	copy(frames, m.frames)
	return frames
}

// Messages decodes every received frame into a generic map.
func (m *MockConn) Messages() []map[string]any {
	frames := m.Frames()
	msgs := make([]map[string]any, 0, len(frames))
	for _, frame := range frames {
		var msg map[string]any
		if err := json.Unmarshal(frame, &msg); err != nil {
			msg = map[string]any{"type": "<undecodable>", "raw": string(frame)}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// MessagesOfType returns the received messages whose type is msgType.
func (m *MockConn) MessagesOfType(msgType string) []map[string]any {
	var out []map[string]any
	for _, msg := range m.Messages() {
		if msg["type"] == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// Types returns the type of every received message in arrival order.
func (m *MockConn) Types() []string {
	msgs := m.Messages()
	types := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		t, _ := msg["type"].(string)
		types = append(types, t)
	}
	return types
}

// Reset forgets every received frame.
func (m *MockConn) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// Frame encodes an inbound envelope the way a client would.
func Frame(msgType string, fields map[string]any) []byte {
	msg := map[string]any{"type": msgType}
	for k, v := range fields {
		msg[k] = v
	}
	data, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return data
}

type account struct {
	identity relay.Identity
	password string
}

// Authenticator is an in-memory credential store.
type Authenticator struct {
	mu       sync.Mutex
	accounts map[string]account
	nextID   int64
	// Err, when set, is returned by every call instead of the normal result.
	Err error
}

// NewAuthenticator returns a store holding the given username/password pairs.
func NewAuthenticator(credentials map[string]string) *Authenticator {
	a := &Authenticator{accounts: make(map[string]account)}
	for username, password := range credentials {
		a.nextID++
		a.accounts[username] = account{
			identity: relay.Identity{ID: a.nextID, Username: username, FullName: username},
			password: password,
		}
	}
	return a
}

// Authenticate implements relay.Authenticator.
func (a *Authenticator) Authenticate(_ context.Context, username, password string) (relay.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return relay.Identity{}, a.Err
	}
	acc, ok := a.accounts[username]
	if !ok || acc.password != password {
		return relay.Identity{}, relay.ErrInvalidCredentials
	}
	return acc.identity, nil
}

// Register implements relay.Authenticator.
func (a *Authenticator) Register(_ context.Context, username, fullName, password string) (relay.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return relay.Identity{}, a.Err
	}
	if _, ok := a.accounts[username]; ok {
		return relay.Identity{}, relay.ErrUsernameTaken
	}
	if fullName == "" {
		fullName = username
	}
	a.nextID++
	identity := relay.Identity{ID: a.nextID, Username: username, FullName: fullName}
	a.accounts[username] = account{identity: identity, password: password}
	return identity, nil
}

// History returns a fixed list of items.
type History struct {
	Items []relay.HistoryItem
	Err   error
}

// RecentHistory implements relay.HistorySource.
func (h *History) RecentHistory(_ context.Context, limit int) ([]relay.HistoryItem, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	items := h.Items
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

// Audit kinds recorded by Auditor.
const (
	KindLogin      = "LOGIN"
	KindLogout     = "LOGOUT"
	KindText       = "TEXT"
	KindFile       = "FILE"
	KindVideoJoin  = "VIDEO_JOIN"
	KindVideoLeave = "VIDEO_LEAVE"
	KindSystem     = "SYSTEM"
)

// Record is one call made to Auditor.
type Record struct {
	Kind     string
	Username string
	Detail   string
	File     relay.FileRecord
}

// Auditor records every call in memory.
type Auditor struct {
	mu      sync.Mutex
	records []Record
	// Err, when set, is returned from every call after recording it.
	Err error
}

func (a *Auditor) add(r Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
	return a.Err
}

// RecordLogin implements relay.Auditor.
func (a *Auditor) RecordLogin(_ context.Context, username string) error {
	return a.add(Record{Kind: KindLogin, Username: username})
}

// RecordLogout implements relay.Auditor.
func (a *Auditor) RecordLogout(_ context.Context, username string) error {
	return a.add(Record{Kind: KindLogout, Username: username})
}

// RecordText implements relay.Auditor.
func (a *Auditor) RecordText(_ context.Context, username, content string) error {
	return a.add(Record{Kind: KindText, Username: username, Detail: content})
}

// RecordFile implements relay.Auditor.
func (a *Auditor) RecordFile(_ context.Context, username string, file relay.FileRecord) error {
	return a.add(Record{Kind: KindFile, Username: username, Detail: file.Filename, File: file})
}

// RecordVideoJoin implements relay.Auditor.
func (a *Auditor) RecordVideoJoin(_ context.Context, username string) error {
	return a.add(Record{Kind: KindVideoJoin, Username: username})
}

// RecordVideoLeave implements relay.Auditor.
func (a *Auditor) RecordVideoLeave(_ context.Context, username string) error {
	return a.add(Record{Kind: KindVideoLeave, Username: username})
}

// RecordSystem implements relay.Auditor.
func (a *Auditor) RecordSystem(_ context.Context, message string) error {
	return a.add(Record{Kind: KindSystem, Detail: message})
}

// Records returns a copy of everything recorded.
func (a *Auditor) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Record(nil), a.records...)
}

// Count returns how many records of kind were made.
func (a *Auditor) Count(kind string) int {
	n := 0
	for _, r := range a.Records() {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// CountSystem returns how many system records carried message.
func (a *Auditor) CountSystem(message string) int {
	n := 0
	for _, r := range a.Records() {
		if r.Kind == KindSystem && r.Detail == message {
			n++
		}
	}
	return n
}
