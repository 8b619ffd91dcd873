package relay

import (
	"sort"
	"sync"
)

// Sessions maps live connections to their authenticated identity. Every
// operation is atomic per connection; snapshots are copies taken under the
// read lock and may miss a concurrent Put.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[Conn]Identity
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[Conn]Identity)}
}

// Put registers identity for conn and returns the identity it replaced.
func (s *Sessions) Put(conn Conn, identity Identity) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.sessions[conn]
	s.sessions[conn] = identity
	return prev, ok
}

// Get returns the identity bound to conn.
func (s *Sessions) Get(conn Conn) (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.sessions[conn]
	return identity, ok
}

// Remove deletes the session of conn and returns the identity it held.
func (s *Sessions) Remove(conn Conn) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.sessions[conn]
	if ok {
		delete(s.sessions, conn)
	}
	return identity, ok
}

// Len returns the number of sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Identities returns an unordered snapshot of all identities.
func (s *Sessions) Identities() []Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identities := make([]Identity, 0, len(s.sessions))
	for _, identity := range s.sessions {
		identities = append(identities, identity)
	}
	return identities
}

// Conns returns an unordered snapshot of all authenticated connections.
func (s *Sessions) Conns() []Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := make([]Conn, 0, len(s.sessions))
	for conn := range s.sessions {
		conns = append(conns, conn)
	}
	return conns
}

// Usernames returns the sorted usernames of all sessions. A user logged in
// from two connections appears twice.
func (s *Sessions) Usernames() []string {
	identities := s.Identities()
	names := make([]string, 0, len(identities))
	for _, identity := range identities {
		names = append(names, identity.Username)
	}
	sort.Strings(names)
	return names
}
