// Package registry tracks which machines are connected and
// authenticated right now. It is a visibility cache over live
// sessions, not an authoritative history; the durable store keeps
// the historical record.
package registry

import (
	"sync"

	"github.com/jbweber/homelab/croft/internal/vm"
)

// Session is the live connection handle the registry holds for each
// authenticated machine. Removing an entry never closes the
// connection; closing the connection must remove the entry.
type Session interface {
	// Machine returns a snapshot copy of the bound machine record.
	Machine() vm.Machine

	// Shutdown sends one final line to the peer and closes the
	// connection. It must be safe to call from any goroutine and must
	// tolerate a peer that is already gone.
	Shutdown(message string)
}

// Registry maps machine id to live session. All access goes through
// the mutex; callers never see the underlying map. Iteration order is
// insertion order.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
	order    []string
}

func New() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Put inserts or replaces the session for a machine id. A replaced id
// keeps its original position in iteration order.
func (r *Registry) Put(id string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		r.order = append(r.order, id)
	}
	r.sessions[id] = s
}

// Remove drops the entry for a machine id. Removing an absent id is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns the live sessions in insertion order. The returned
// slice is owned by the caller; later registry mutations do not
// affect it.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// Machines returns snapshot copies of every connected machine record,
// in insertion order.
func (r *Registry) Machines() []vm.Machine {
	sessions := r.Snapshot()
	out := make([]vm.Machine, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Machine())
	}
	return out
}

// Len reports the number of connected machines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
