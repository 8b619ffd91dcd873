package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

func newDetachedClient(t *testing.T) *Client {
	t.Helper()
	hub := relay.NewHub(relay.HubConfig{Logger: zerolog.Nop()})
	return NewClient(nil, hub, "127.0.0.1:1", *NewConfig(), zerolog.Nop())
}

func TestClientCloseQueuesBehindData(t *testing.T) {
	c := newDetachedClient(t)
	require.NotEmpty(t, c.ID())

	require.NoError(t, c.Send([]byte(`{"type":"auth_fail"}`)))
	require.NoError(t, c.Close(relay.ClosePolicyViolation, "Auth failed"))
	require.NoError(t, c.Close(relay.CloseNormalClosure, "ignored"))

	assert.False(t, c.IsOpen())
	assert.ErrorIs(t, c.Send([]byte("late")), relay.ErrConnClosed)

	require.Len(t, c.send, 2)
	first := <-c.send
	assert.Equal(t, `{"type":"auth_fail"}`, string(first.data))
	second := <-c.send
	assert.True(t, second.close)
	assert.Equal(t, relay.ClosePolicyViolation, second.code)
	assert.Equal(t, "Auth failed", second.reason)
}

func TestClientSendQueueOverflowDropsClient(t *testing.T) {
	c := newDetachedClient(t)

	for i := 0; i < sendQueueSize; i++ {
		require.NoError(t, c.Send([]byte("x")))
	}
	err := c.Send([]byte("one too many"))
	assert.ErrorIs(t, err, relay.ErrSendQueueFull)
	assert.False(t, c.IsOpen())

	select {
	case <-c.done:
	default:
		t.Fatal("write pump was not released")
	}
}

func TestClientPingPeriodBelowIdleTimeout(t *testing.T) {
	c := newDetachedClient(t)
	assert.Less(t, c.pingPeriod(), c.idleTimeout)
}
