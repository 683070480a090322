// Package server implements the newline-delimited text protocol for
// virtual machine clients: a listener spawning one session goroutine
// per connection, plus the operator console sharing the same registry
// and inventory facade.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jbweber/homelab/croft/internal/inventory"
	"github.com/jbweber/homelab/croft/internal/registry"
	"github.com/jbweber/homelab/croft/internal/store"
)

// ShutdownMessage is the final line sent to every connected client
// when the server stops.
const ShutdownMessage = "server shutting down"

// Server accepts client connections and owns the process-wide
// connection registry.
type Server struct {
	log       *zap.Logger
	secret    string
	registry  *registry.Registry
	store     store.Store
	inventory *inventory.Service

	ln           net.Listener
	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// New wires a server around the durable store. The shared secret
// gates every AUTH.
func New(secret string, st store.Store, log *zap.Logger) *Server {
	reg := registry.New()
	return &Server{
		log:       log.Named("server"),
		secret:    secret,
		registry:  reg,
		store:     st,
		inventory: inventory.New(reg, st),
	}
}

// Inventory exposes the query facade so the console and the HTTP
// surface issue exactly the same queries as the wire protocol.
func (s *Server) Inventory() *inventory.Service {
	return s.inventory
}

// Listen binds the TCP listener.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.ln = ln
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown is called or the context
// is canceled, then waits for all sessions to drain.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Shutdown(ShutdownMessage)
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		s.log.Info("new connection", zap.String("remote_addr", conn.RemoteAddr().String()))

		sess := newSession(conn, s)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run(ctx)
		}()
	}
}

// Shutdown notifies every connected session with a final line, closes
// their connections and stops accepting new ones, as one sequence.
// Safe to call more than once.
func (s *Server) Shutdown(message string) {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("shutting down", zap.Int("connected", s.registry.Len()))
	for _, sess := range s.registry.Snapshot() {
		sess.Shutdown(message)
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
}
