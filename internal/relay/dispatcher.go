package relay

import (
	"context"
	"sync"
)

// Handler processes one envelope type.
type Handler interface {
	Handle(ctx context.Context, hub *Hub, conn Conn, env Envelope)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, hub *Hub, conn Conn, env Envelope)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, hub *Hub, conn Conn, env Envelope) {
	f(ctx, hub, conn, env)
}

// Dispatcher maps envelope types to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher returns a dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// NewDefaultDispatcher returns a dispatcher with every chat and signaling
// handler registered.
func NewDefaultDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.Register(TypeAuth, HandlerFunc(handleAuth))
	d.Register(TypeRegister, HandlerFunc(handleRegister))
	d.Register(TypeText, HandlerFunc(handleText))
	d.Register(TypeFile, HandlerFunc(handleFile))
	d.Register(TypeJoinRoom, HandlerFunc(handleJoinRoom))
	d.Register(TypeLeaveRoom, HandlerFunc(handleLeaveRoom))
	d.Register(TypeWebRTCOffer, signalHandler{payloadKey: "offer"})
	d.Register(TypeWebRTCAnswer, signalHandler{payloadKey: "answer"})
	d.Register(TypeWebRTCICE, signalHandler{payloadKey: "candidate"})
	d.Register(TypeLogout, HandlerFunc(handleLogout))
	return d
}

// Register binds h to msgType, replacing any previous handler.
func (d *Dispatcher) Register(msgType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = h
}

// Lookup returns the handler registered for msgType.
func (d *Dispatcher) Lookup(msgType string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[msgType]
	return h, ok
}

// Types returns the number of registered types.
func (d *Dispatcher) Types() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Dispatch runs the handler for env.Type on the calling goroutine. Unknown
// types get an error reply and an *UnknownTypeError; nothing else happens.
func (d *Dispatcher) Dispatch(ctx context.Context, hub *Hub, conn Conn, env Envelope) error {
	h, ok := d.Lookup(env.Type)
	if !ok {
		err := &UnknownTypeError{Type: env.Type}
		hub.Send(conn, Notice{Type: TypeError, Msg: err.Error()})
		return err
	}
	h.Handle(ctx, hub, conn, env)
	return nil
}
