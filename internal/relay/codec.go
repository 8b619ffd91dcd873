package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is one decoded inbound frame: the mandatory type plus the raw
// JSON of every other field.
type Envelope struct {
	Type   string
	Fields map[string]json.RawMessage
}

// NewEnvelope builds an Envelope from Go values. Fields that fail to encode
// are dropped.
func NewEnvelope(msgType string, fields map[string]any) Envelope {
	env := Envelope{Type: msgType, Fields: make(map[string]json.RawMessage, len(fields))}
	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		env.Fields[key] = raw
	}
	return env
}

// Decode parses a frame into an Envelope.
func Decode(frame []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if fields == nil {
		return Envelope{}, fmt.Errorf("%w: not an object", ErrInvalidEnvelope)
	}

	rawType, ok := fields["type"]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrInvalidEnvelope)
	}
	var msgType string
	if err := json.Unmarshal(rawType, &msgType); err != nil {
		return Envelope{}, fmt.Errorf("%w: type is not a string", ErrInvalidEnvelope)
	}
	msgType = strings.TrimSpace(msgType)
	if msgType == "" {
		return Envelope{}, fmt.Errorf("%w: empty type", ErrInvalidEnvelope)
	}

	delete(fields, "type")
	return Envelope{Type: msgType, Fields: fields}, nil
}

// Encode marshals an outbound message.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	return data, nil
}

// MarshalJSON writes the envelope back as a flat object with "type" first.
func (e Envelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	typeJSON, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"type":`)
	buf.Write(typeJSON)

	rest, err := json.Marshal(e.Fields)
	if err != nil {
		return nil, err
	}
	// rest is "{...}" or "null"; splice its members after "type".
	if len(rest) > 2 && rest[0] == '{' {
		buf.WriteByte(',')
		buf.Write(rest[1 : len(rest)-1])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Has reports whether key is present and not null.
func (e Envelope) Has(key string) bool {
	raw, ok := e.Fields[key]
	return ok && !isNull(raw)
}

// Raw returns the raw JSON of key, or nil when absent.
func (e Envelope) Raw(key string) json.RawMessage {
	raw, ok := e.Fields[key]
	if !ok {
		return nil
	}
	return raw
}

// String returns key as a trimmed string. Absent and null fields yield "";
// non-string values yield their JSON text.
func (e Envelope) String(key string) string {
	raw, ok := e.Fields[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// Int64 returns key as an integer when it holds a JSON number.
func (e Envelope) Int64(key string) (int64, bool) {
	raw, ok := e.Fields[key]
	if !ok {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
