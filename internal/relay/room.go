package relay

import (
	"sort"
	"sync"
)

// JoinResult describes the room as it was just before a Join.
type JoinResult struct {
	// Others holds the sorted names of the members present before the join,
	// excluding the joiner.
	Others []string
	// WasEmpty is true for exactly one join per empty to non-empty transition.
	WasEmpty bool
	// Replaced is the connection previously registered under the joiner's
	// name, if any. It is not disconnected.
	Replaced Conn
}

// Room is the single ad-hoc video room keyed by username. The snapshot, the
// emptiness test and the insert of a Join happen under one lock, so room
// start and end transitions are observed exactly once even under concurrent
// joins and leaves.
type Room struct {
	mu      sync.Mutex
	members map[string]Conn
}

// NewRoom returns an empty room.
func NewRoom() *Room {
	return &Room{members: make(map[string]Conn)}
}

// Join inserts or replaces the membership of username.
func (r *Room) Join(username string, conn Conn) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := JoinResult{
		Others:   make([]string, 0, len(r.members)),
		WasEmpty: len(r.members) == 0,
	}
	for name := range r.members {
		if name != username {
			result.Others = append(result.Others, name)
		}
	}
	sort.Strings(result.Others)

	if prev, ok := r.members[username]; ok && prev != conn {
		result.Replaced = prev
	}
	r.members[username] = conn
	return result
}

// Leave removes username if present. nowEmpty is only meaningful when
// removed is true.
func (r *Room) Leave(username string) (removed, nowEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[username]; !ok {
		return false, false
	}
	delete(r.members, username)
	return true, len(r.members) == 0
}

// LeaveConn removes username only while it is still bound to conn, so a
// superseded connection going away never evicts its replacement.
func (r *Room) LeaveConn(username string, conn Conn) (removed, nowEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.members[username]; !ok || current != conn {
		return false, false
	}
	delete(r.members, username)
	return true, len(r.members) == 0
}

// Lookup returns the connection registered under username.
func (r *Room) Lookup(username string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.members[username]
	return conn, ok
}

// IsEmpty reports whether nobody is in the room.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// Len returns the number of members.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Usernames returns the sorted member names.
func (r *Room) Usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Members returns a snapshot of the membership map.
func (r *Room) Members() map[string]Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make(map[string]Conn, len(r.members))
	for name, conn := range r.members {
		members[name] = conn
	}
	return members
}
