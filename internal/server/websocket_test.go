package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/relay"
	"github.com/Tyrowin/gochat-relay/internal/relay/relaytest"
	"github.com/Tyrowin/gochat-relay/internal/server"
)

const testOrigin = "http://chat.test"

type testEnv struct {
	srv   *server.Server
	hub   *relay.Hub
	audit *relaytest.Auditor
	ts    *httptest.Server
	wsURL string
}

func newTestEnv(t *testing.T, customize func(cfg *server.Config), opts ...server.Option) *testEnv {
	t.Helper()
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	if customize != nil {
		customize(cfg)
	}

	audit := &relaytest.Auditor{}
	hub := relay.NewHub(relay.HubConfig{
		Authenticator: relaytest.NewAuthenticator(map[string]string{"alice": "pw", "bob": "pw"}),
		History:       &relaytest.History{},
		Auditor:       audit,
		Logger:        zerolog.Nop(),
	})
	srv := server.New(cfg, hub, zerolog.Nop(), opts...)
	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(ts.Close)

	return &testEnv{
		srv:   srv,
		hub:   hub,
		audit: audit,
		ts:    ts,
		wsURL: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", testOrigin)
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *testEnv) login(t *testing.T, username string) *websocket.Conn {
	t.Helper()
	conn := e.dial(t)
	send(t, conn, relay.TypeAuth, map[string]any{"username": username, "password": "pw"})
	readType(t, conn, relay.TypeAuthOK)
	readType(t, conn, relay.TypeHistory)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, fields map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, relaytest.Frame(msgType, fields)))
}

func read(t *testing.T, conn *websocket.Conn) (map[string]any, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg), "every frame is exactly one JSON envelope")
	return msg, nil
}

// readType reads until a message of msgType arrives, skipping others.
func readType(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	for {
		msg, err := read(t, conn)
		require.NoError(t, err, "waiting for %s", msgType)
		if msg["type"] == msgType {
			return msg
		}
	}
}

// readClose reads until the connection closes and returns the close code.
func readClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	for {
		_, err := read(t, conn)
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "expected a close frame, got %v", err)
		return closeErr.Code
	}
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %s", data)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "unexpected error %v", err)
}

func TestAuthFailureClosesWithPolicyViolation(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t)

	send(t, conn, relay.TypeAuth, map[string]any{"username": "alice", "password": ""})

	msg, err := read(t, conn)
	require.NoError(t, err)
	assert.Equal(t, relay.TypeAuthFail, msg["type"])
	assert.Equal(t, websocket.ClosePolicyViolation, readClose(t, conn))
}

func TestUnauthenticatedTextClosesConnection(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t)

	send(t, conn, relay.TypeText, map[string]any{"content": "sneaky"})
	assert.Equal(t, websocket.ClosePolicyViolation, readClose(t, conn))
}

// TestChatEndToEnd logs two users in, exchanges a text message and checks
// that a disconnect refreshes the remaining user's list.
func TestChatEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	list := readType(t, alice, relay.TypeUserList)
	for len(list["users"].([]any)) < 2 {
		list = readType(t, alice, relay.TypeUserList)
	}
	assert.ElementsMatch(t, []any{"alice", "bob"}, list["users"])

	send(t, alice, relay.TypeText, map[string]any{"content": "hi"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readType(t, conn, relay.TypeText)
		assert.Equal(t, "alice", msg["from"])
		assert.Equal(t, "hi", msg["content"])
		assert.NotZero(t, msg["timestamp"])
	}

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	for len(list["users"].([]any)) != 1 {
		list = readType(t, alice, relay.TypeUserList)
	}
	assert.Equal(t, []any{"alice"}, list["users"])
}

func TestVideoRoomSignaling(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	send(t, alice, relay.TypeJoinRoom, nil)
	roomUsers := readType(t, alice, relay.TypeRoomUsers)
	assert.Empty(t, roomUsers["users"])

	send(t, bob, relay.TypeJoinRoom, nil)
	roomUsers = readType(t, bob, relay.TypeRoomUsers)
	assert.Equal(t, []any{"alice"}, roomUsers["users"])
	joined := readType(t, alice, relay.TypeUserJoined)
	assert.Equal(t, "bob", joined["username"])

	send(t, alice, relay.TypeWebRTCOffer, map[string]any{"to": "bob", "offer": map[string]any{"sdp": "v=0"}})
	offer := readType(t, bob, relay.TypeWebRTCOffer)
	assert.Equal(t, "alice", offer["from"])
	assert.Equal(t, map[string]any{"sdp": "v=0"}, offer["offer"])

	send(t, bob, relay.TypeLeaveRoom, nil)
	left := readType(t, alice, relay.TypeUserLeft)
	assert.Equal(t, "bob", left["username"])

	assert.Equal(t, 1, env.audit.CountSystem(relay.SystemRoomStarted))
}

func TestLogoutClosesNormally(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")

	send(t, alice, relay.TypeLogout, nil)
	assert.Equal(t, websocket.CloseNormalClosure, readClose(t, alice))
	require.Eventually(t, func() bool { return env.hub.Sessions().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnknownAndMalformedFrames(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t)

	send(t, conn, "dance", nil)
	msg := readType(t, conn, relay.TypeError)
	assert.Equal(t, "unknown type: dance", msg["msg"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	msg = readType(t, conn, relay.TypeError)
	assert.Equal(t, "invalid message", msg["msg"])
}

func TestDisallowedOriginRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	header := http.Header{}
	header.Set("Origin", "http://evil.test")
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketEndpointRejectsPost(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.ts.URL+"/ws", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) { cfg.MaxMessageSize = 64 })
	conn := env.dial(t)

	send(t, conn, relay.TypeText, map[string]any{"content": strings.Repeat("x", 256)})

	var err error
	for err == nil {
		_, err = read(t, conn)
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		assert.Equal(t, websocket.CloseMessageTooBig, closeErr.Code)
	}
	assert.Equal(t, int64(64), env.srv.Config().MaxMessageSize)
}

func TestRateLimitDiscardsExcessFrames(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) {
		cfg.RateLimit = server.RateLimitConfig{Burst: 2, RefillInterval: time.Hour}
	})
	conn := env.dial(t)

	for i := 0; i < 4; i++ {
		send(t, conn, "dance", nil)
	}
	readType(t, conn, relay.TypeError)
	readType(t, conn, relay.TypeError)
	expectNoMessage(t, conn, 300*time.Millisecond)
}

func TestHealthAndStats(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")
	send(t, alice, relay.TypeJoinRoom, nil)
	readType(t, alice, relay.TypeRoomUsers)

	resp, err := http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	resp, err = http.Get(env.ts.URL + "/stats")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var stats server.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Connections)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, []string{"alice"}, stats.Users)
	assert.Equal(t, []string{"alice"}, stats.RoomMembers)
}

func TestHealthReportsFailingDependency(t *testing.T) {
	env := newTestEnv(t, nil, server.WithHealthCheck(func(context.Context) error {
		return errors.New("database is gone")
	}))

	resp, err := http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// TestShutdownClosesClientsGoingAway checks that shutdown sends every open
// WebSocket a going-away close frame and waits for the pumps.
func TestShutdownClosesClientsGoingAway(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.login(t, "alice")
	bob := env.dial(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.srv.ShutdownServer(ctx, env.ts.Config))

	assert.Equal(t, websocket.CloseGoingAway, readClose(t, alice))
	assert.Equal(t, websocket.CloseGoingAway, readClose(t, bob))
	require.NoError(t, env.hub.Shutdown(ctx))
	assert.Equal(t, 0, env.hub.Sessions().Len())
}

func TestCreateServerTimeouts(t *testing.T) {
	srv := server.CreateServer("localhost:0", http.NewServeMux())
	assert.Equal(t, "localhost:0", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
}
