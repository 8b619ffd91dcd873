// Package relay is the session, room and dispatch core of the chat relay.
//
// A Hub owns the two pieces of shared mutable state, the Sessions registry
// (connection to authenticated identity) and the Room registry (video room
// participant name to connection), together with the Dispatcher that routes
// each inbound Envelope to the Handler registered for its type. Transports
// feed the Hub through its lifecycle methods (Open, Submit, Closed, Error) and
// expose their connections through the Conn interface.
//
// Delivery is best effort: broadcasts write to a snapshot of the registry,
// skip connections that are no longer open and never retry.
package relay
