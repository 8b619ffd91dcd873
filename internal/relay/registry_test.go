package relay_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/relay"
	"github.com/Tyrowin/gochat-relay/internal/relay/relaytest"
)

func TestSessionsPutGetRemove(t *testing.T) {
	s := relay.NewSessions()
	conn := relaytest.NewMockConn()

	_, ok := s.Get(conn)
	assert.False(t, ok)

	_, replaced := s.Put(conn, relay.Identity{ID: 1, Username: "alice"})
	assert.False(t, replaced)
	identity, ok := s.Get(conn)
	require.True(t, ok)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, 1, s.Len())

	prev, replaced := s.Put(conn, relay.Identity{ID: 2, Username: "bob"})
	assert.True(t, replaced)
	assert.Equal(t, "alice", prev.Username)
	s.Put(conn, identity)

	removed, ok := s.Remove(conn)
	require.True(t, ok)
	assert.Equal(t, "alice", removed.Username)
	assert.Equal(t, 0, s.Len())

	_, ok = s.Remove(conn)
	assert.False(t, ok, "second remove must be a no-op")
}

// TestSessionsUsernamesSortedWithDuplicates checks that one user logged in
// twice is listed twice and that the list is sorted.
func TestSessionsUsernamesSortedWithDuplicates(t *testing.T) {
	s := relay.NewSessions()
	s.Put(relaytest.NewMockConn(), relay.Identity{Username: "carol"})
	s.Put(relaytest.NewMockConn(), relay.Identity{Username: "alice"})
	s.Put(relaytest.NewMockConn(), relay.Identity{Username: "alice"})

	assert.Equal(t, []string{"alice", "alice", "carol"}, s.Usernames())
	assert.Len(t, s.Conns(), 3)
	assert.Len(t, s.Identities(), 3)
}

func TestSessionsConcurrentAccess(t *testing.T) {
	s := relay.NewSessions()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := relaytest.NewMockConn()
			s.Put(conn, relay.Identity{Username: conn.ID()})
			_ = s.Usernames()
			s.Remove(conn)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len())
}

func TestRoomJoinReportsOthersAndTransition(t *testing.T) {
	r := relay.NewRoom()
	a, b := relaytest.NewMockConn(), relaytest.NewMockConn()

	first := r.Join("alice", a)
	assert.True(t, first.WasEmpty)
	assert.Empty(t, first.Others)
	assert.NotNil(t, first.Others, "others must encode as an empty list")

	second := r.Join("bob", b)
	assert.False(t, second.WasEmpty)
	assert.Equal(t, []string{"alice"}, second.Others)
	assert.Nil(t, second.Replaced)

	assert.Equal(t, []string{"alice", "bob"}, r.Usernames())
	assert.Equal(t, 2, r.Len())
}

func TestRoomRejoinFromNewConnectionReplaces(t *testing.T) {
	r := relay.NewRoom()
	oldConn, newConn := relaytest.NewMockConn(), relaytest.NewMockConn()

	r.Join("alice", oldConn)
	result := r.Join("alice", newConn)
	assert.Same(t, oldConn, result.Replaced)
	assert.Empty(t, result.Others, "joiner is never listed among others")
	assert.True(t, oldConn.IsOpen(), "replaced connection is not disconnected")

	current, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, newConn, current)

	again := r.Join("alice", newConn)
	assert.Nil(t, again.Replaced, "rejoining from the same connection replaces nothing")
}

func TestRoomRegistryLeave(t *testing.T) {
	r := relay.NewRoom()
	a, b := relaytest.NewMockConn(), relaytest.NewMockConn()
	r.Join("alice", a)
	r.Join("bob", b)

	removed, nowEmpty := r.Leave("alice")
	assert.True(t, removed)
	assert.False(t, nowEmpty)

	removed, _ = r.Leave("alice")
	assert.False(t, removed)

	removed, nowEmpty = r.Leave("bob")
	assert.True(t, removed)
	assert.True(t, nowEmpty)
	assert.True(t, r.IsEmpty())
}

func TestRoomLeaveConnKeepsReplacement(t *testing.T) {
	r := relay.NewRoom()
	oldConn, newConn := relaytest.NewMockConn(), relaytest.NewMockConn()
	r.Join("alice", oldConn)
	r.Join("alice", newConn)

	removed, _ := r.LeaveConn("alice", oldConn)
	assert.False(t, removed)
	current, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, newConn, current)

	removed, nowEmpty := r.LeaveConn("alice", newConn)
	assert.True(t, removed)
	assert.True(t, nowEmpty)
}

// TestRoomConcurrentJoinsStartOnce checks that exactly one of many
// simultaneous joiners observes the empty room, and exactly one of the
// leavers observes it becoming empty again.
func TestRoomConcurrentJoinsStartOnce(t *testing.T) {
	r := relay.NewRoom()
	const n = 64

	var started, ended atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := relaytest.NewMockConn()
			if r.Join(conn.ID(), conn).WasEmpty {
				started.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, n, r.Len())

	for name := range r.Members() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if removed, nowEmpty := r.Leave(name); removed && nowEmpty {
				ended.Add(1)
			}
		}(name)
	}
	wg.Wait()
	assert.Equal(t, int32(1), ended.Load())
	assert.True(t, r.IsEmpty())
}
