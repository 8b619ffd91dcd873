package server

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// clientSet tracks live clients and their pump goroutines so the server can
// close them all on shutdown and wait for the pumps to finish.
type clientSet struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
	log     zerolog.Logger
}

func newClientSet(log zerolog.Logger) *clientSet {
	return &clientSet{clients: make(map[*Client]struct{}), log: log}
}

// serve registers c, starts its write pump and runs its read pump until the
// connection ends.
func (s *clientSet) serve(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.wg.Add(2)
	s.mu.Unlock()
	c.log.Info().Int("clients", count).Msg("client registered")

	go func() {
		defer s.wg.Done()
		c.writePump()
	}()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		count := len(s.clients)
		s.mu.Unlock()
		s.wg.Done()
		c.log.Info().Int("clients", count).Msg("client unregistered")
	}()
	c.hub.Open(c)
	c.readPump()
}

// Len returns the number of live clients.
func (s *clientSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *clientSet) snapshot() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

// closeAll sends a close frame with code to every client.
func (s *clientSet) closeAll(code int, reason string) int {
	clients := s.snapshot()
	for _, client := range clients {
		_ = client.Close(code, reason)
	}
	s.log.Info().Int("clients", len(clients)).Msg("closing all client connections")
	return len(clients)
}

// wait blocks until every pump goroutine has returned or ctx is done.
func (s *clientSet) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, client := range s.snapshot() {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.log.Debug().Err(err).Msg("error force-closing connection")
			}
		}
		return ctx.Err()
	}
}
