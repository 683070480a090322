package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jbweber/homelab/croft/internal/command"
	"github.com/jbweber/homelab/croft/internal/inventory"
	"github.com/jbweber/homelab/croft/internal/registry"
	"github.com/jbweber/homelab/croft/internal/store"
	"github.com/jbweber/homelab/croft/internal/vm"
)

// sessionState tracks the per-connection lifecycle. A machine record
// is bound if and only if the session is authenticated.
type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// Response lines for the recoverable failure taxonomy. Each is sent
// as exactly one line; none of them closes the connection.
const (
	respUnknownCommand       = "unknown command"
	respNotAuthenticated     = "error: not authenticated, run AUTH first"
	respAlreadyAuthenticated = "already authenticated"
	respBadPassword          = "error: invalid password"
	respForbidden            = "error: access denied, you can only manage your own virtual machine"
	respBadNumber            = "error: invalid numeric parameters"
)

// Session owns one client connection: it reads commands one line at a
// time, enforces the authentication gate, mutates its bound machine
// and mirrors every mutation into the durable store. Commands on one
// connection are strictly serial; the next read does not start until
// the previous response is written.
type Session struct {
	conn      net.Conn
	log       *zap.Logger
	registry  *registry.Registry
	store     store.Store
	inventory *inventory.Service
	secret    string

	// mu guards state and machine; both are read by other goroutines
	// through Machine().
	mu      sync.Mutex
	state   sessionState
	machine *vm.Machine

	// writeMu serializes connection writes between the session loop
	// and Shutdown.
	writeMu sync.Mutex
}

func newSession(conn net.Conn, srv *Server) *Session {
	return &Session{
		conn:      conn,
		log:       srv.log.Named("session").With(zap.String("remote_addr", conn.RemoteAddr().String())),
		registry:  srv.registry,
		store:     srv.store,
		inventory: srv.inventory,
		secret:    srv.secret,
	}
}

// run processes lines until the peer disconnects, the server shuts
// the session down, or a store/transport failure ends the loop. It
// always leaves the registry and connection cleaned up.
func (s *Session) run(ctx context.Context) {
	defer s.cleanup()

	r := bufio.NewReader(s.conn)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if herr := s.handleLine(ctx, line); herr != nil {
				s.log.Error("closing connection", zap.Error(herr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("read failed", zap.Error(err))
			}
			return
		}
	}
}

// handleLine dispatches one wire line. A returned error means the
// session cannot continue (store or transport failure); every
// protocol-level problem is answered with a response line and a nil
// error.
func (s *Session) handleLine(ctx context.Context, line string) error {
	msg := strings.TrimSpace(line)
	if msg == "" {
		return nil
	}
	s.log.Debug("command received", zap.String("line", msg))

	req, err := command.Parse(msg)
	if err != nil {
		return s.reply(respUnknownCommand)
	}

	switch req.Name {
	case command.Auth:
		return s.handleAuth(ctx, req.Args)
	case command.AddVM:
		return s.handleAddVM(ctx, req.Args)
	case command.UpdateVM:
		return s.handleUpdateVM(ctx, req.Args)
	case command.Logout:
		return s.handleLogout(ctx)
	default:
		return s.handleList(ctx, req.Name)
	}
}

func (s *Session) handleAuth(ctx context.Context, args []string) error {
	a, err := command.ParseAuth(args)
	if err != nil {
		return s.reply(missingArgs(command.Auth))
	}
	if a.Password != s.secret {
		return s.reply(respBadPassword)
	}

	s.mu.Lock()
	if s.state == stateAuthenticated {
		s.mu.Unlock()
		return s.reply(respAlreadyAuthenticated)
	}
	m := &vm.Machine{ID: a.MachineID, Disks: []vm.Disk{}, Authorized: true}
	s.machine = m
	s.state = stateAuthenticated
	s.mu.Unlock()

	s.registry.Put(a.MachineID, s)
	if err := s.persist(ctx); err != nil {
		return err
	}
	return s.reply(fmt.Sprintf("authentication successful for VM %s", a.MachineID))
}

func (s *Session) handleAddVM(ctx context.Context, args []string) error {
	ownID, authed := s.boundID()
	if !authed {
		return s.reply(respNotAuthenticated)
	}
	if len(args) < 3 {
		return s.reply(missingArgs(command.AddVM))
	}
	if args[0] != ownID {
		return s.reply(respForbidden)
	}

	a, err := command.ParseAddVM(args)
	if err != nil {
		return s.reply(respBadNumber)
	}

	disks := a.Disks
	if disks == nil {
		disks = []vm.Disk{}
	}

	s.mu.Lock()
	s.machine.RAM = a.RAM
	s.machine.CPU = a.CPU
	s.machine.Disks = disks
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	return s.reply(fmt.Sprintf("data for VM %s added", ownID))
}

func (s *Session) handleUpdateVM(ctx context.Context, args []string) error {
	ownID, authed := s.boundID()
	if !authed {
		return s.reply(respNotAuthenticated)
	}

	a, err := command.ParseUpdateVM(args)
	switch {
	case errors.Is(err, command.ErrMissingArguments):
		return s.reply(missingArgs(command.UpdateVM))
	case err != nil:
		return s.reply(respBadNumber)
	}

	s.mu.Lock()
	s.machine.RAM = a.RAM
	s.machine.CPU = a.CPU
	// UPDATE_VM replaces the disk list only when at least one
	// well-formed disk token was supplied; ADD_VM always replaces.
	if len(a.Disks) > 0 {
		s.machine.Disks = a.Disks
	}
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	return s.reply(fmt.Sprintf("VM %s updated", ownID))
}

func (s *Session) handleLogout(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateAuthenticated {
		s.mu.Unlock()
		return s.reply(respNotAuthenticated)
	}
	s.machine.Authorized = false
	id := s.machine.ID
	s.mu.Unlock()

	// Persist the deauthorized row before forgetting the identity so
	// a store failure still cleans up the registry entry.
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.registry.Remove(id)

	s.mu.Lock()
	s.machine = nil
	s.state = stateUnauthenticated
	s.mu.Unlock()

	return s.reply(fmt.Sprintf("VM %s logged out", id))
}

func (s *Session) handleList(ctx context.Context, name command.Name) error {
	result, err := s.inventory.Collect(ctx, name)
	if err != nil {
		return fmt.Errorf("inventory query failed: %w", err)
	}
	line, err := inventory.CompactLine(result)
	if err != nil {
		return fmt.Errorf("failed to serialize %s response: %w", name, err)
	}
	return s.reply(line)
}

// persist mirrors the bound machine and its disks into the durable
// store. A failure here is terminal for this connection only.
func (s *Session) persist(ctx context.Context) error {
	s.mu.Lock()
	m := s.machine.Clone()
	s.mu.Unlock()
	if err := store.SaveMachine(ctx, s.store, m); err != nil {
		return fmt.Errorf("failed to persist machine %s: %w", m.ID, err)
	}
	return nil
}

func (s *Session) boundID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateAuthenticated {
		return "", false
	}
	return s.machine.ID, true
}

// reply writes exactly one response line. A write failure is a
// transport failure and terminates the session.
func (s *Session) reply(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// cleanup releases everything the session holds. Safe to call on a
// half-closed or reset peer, and idempotent with Shutdown.
func (s *Session) cleanup() {
	s.mu.Lock()
	m := s.machine
	s.machine = nil
	s.state = stateClosed
	s.mu.Unlock()

	if m != nil {
		s.registry.Remove(m.ID)
	}
	_ = s.conn.Close()
	s.log.Info("client disconnected")
}

// Machine implements registry.Session.
func (s *Session) Machine() vm.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return vm.Machine{}
	}
	return s.machine.Clone()
}

// Shutdown implements registry.Session: best-effort notification
// followed by connection close. The session loop observes the closed
// connection and cleans itself up.
func (s *Session) Shutdown(message string) {
	s.writeMu.Lock()
	_, _ = s.conn.Write([]byte(message + "\n"))
	s.writeMu.Unlock()
	_ = s.conn.Close()
}

func missingArgs(name command.Name) string {
	return fmt.Sprintf("error: not enough arguments for %s", name)
}
