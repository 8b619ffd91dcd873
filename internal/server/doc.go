// Package server carries the relay over HTTP and WebSocket.
//
// Each accepted connection becomes a Client that implements relay.Conn. Its
// read pump hands frames to the relay hub and its write pump drains a
// bounded send queue, pings the peer and writes close frames in order with
// the data queued before them. The package also holds the environment
// configuration, the origin allow-list and the per-connection rate limiter.
package server
