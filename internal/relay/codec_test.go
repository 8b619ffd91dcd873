package relay_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

func TestDecode(t *testing.T) {
	env, err := relay.Decode([]byte(`{"type":" text ","content":"  hi  ","size":42,"offer":{"sdp":"v=0"}}`))
	require.NoError(t, err)

	assert.Equal(t, "text", env.Type)
	assert.False(t, env.Has("type"), "type is not kept among the fields")
	assert.Equal(t, "hi", env.String("content"))
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(env.Raw("offer")))

	size, ok := env.Int64("size")
	require.True(t, ok)
	assert.Equal(t, int64(42), size)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `hello`},
		{"array", `[1,2]`},
		{"null", `null`},
		{"missing type", `{"content":"x"}`},
		{"numeric type", `{"type":7}`},
		{"blank type", `{"type":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := relay.Decode([]byte(tt.frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, relay.ErrInvalidEnvelope))
		})
	}
}

func TestEnvelopeAccessors(t *testing.T) {
	env := relay.NewEnvelope("file", map[string]any{
		"filename": "x.png",
		"empty":    nil,
		"size":     12.0,
		"flag":     true,
	})

	assert.True(t, env.Has("filename"))
	assert.False(t, env.Has("empty"))
	assert.False(t, env.Has("missing"))
	assert.Equal(t, "", env.String("empty"))
	assert.Equal(t, "true", env.String("flag"))
	assert.Nil(t, env.Raw("missing"))

	size, ok := env.Int64("size")
	assert.True(t, ok)
	assert.Equal(t, int64(12), size)

	_, ok = env.Int64("filename")
	assert.False(t, ok)
}

func TestEnvelopeMarshalPutsTypeFirst(t *testing.T) {
	env := relay.NewEnvelope("webrtc_ice", map[string]any{"to": "bob"})
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"webrtc_ice","to":"bob"}`, string(data))

	bare, err := json.Marshal(relay.Envelope{Type: "logout"})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"logout"}`, string(bare))
}

func TestUnknownTypeError(t *testing.T) {
	var err error = &relay.UnknownTypeError{Type: "dance"}
	assert.Equal(t, "unknown type: dance", err.Error())
	assert.True(t, errors.Is(err, relay.ErrUnknownType))
}
