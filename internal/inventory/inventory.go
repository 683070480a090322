// Package inventory answers the four list-style queries over the two
// halves of the system state: the connection registry (who is here
// now) and the durable store (everything ever seen). Every caller of
// these queries, whether the wire protocol, the operator console or
// the HTTP surface, goes through this facade.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jbweber/homelab/croft/internal/command"
	"github.com/jbweber/homelab/croft/internal/registry"
	"github.com/jbweber/homelab/croft/internal/store"
	"github.com/jbweber/homelab/croft/internal/vm"
)

// Service reads the registry and the store; it never mutates either.
type Service struct {
	registry *registry.Registry
	store    store.Store
}

func New(reg *registry.Registry, st store.Store) *Service {
	return &Service{registry: reg, store: st}
}

// Connected returns snapshot records of currently connected,
// authenticated machines, in connection order.
func (s *Service) Connected() []vm.Machine {
	machines := s.registry.Machines()
	for i := range machines {
		if machines[i].Disks == nil {
			machines[i].Disks = []vm.Disk{}
		}
	}
	return machines
}

// Authorized returns durable rows whose authorized flag is set.
func (s *Service) Authorized(ctx context.Context) ([]store.Machine, error) {
	rows, err := s.store.ListAuthorized(ctx)
	if rows == nil {
		rows = []store.Machine{}
	}
	return rows, err
}

// All returns every durable machine row ever upserted.
func (s *Service) All(ctx context.Context) ([]store.Machine, error) {
	rows, err := s.store.ListAll(ctx)
	if rows == nil {
		rows = []store.Machine{}
	}
	return rows, err
}

// Disks returns every durable disk row with its owning machine.
func (s *Service) Disks(ctx context.Context) ([]store.Disk, error) {
	rows, err := s.store.ListDisks(ctx)
	if rows == nil {
		rows = []store.Disk{}
	}
	return rows, err
}

// Collect runs the list query named by the command and returns the
// result slice. Only the four LIST_* commands are valid.
func (s *Service) Collect(ctx context.Context, name command.Name) (any, error) {
	switch name {
	case command.ListConnected:
		return s.Connected(), nil
	case command.ListAuthorized:
		return s.Authorized(ctx)
	case command.ListAll:
		return s.All(ctx)
	case command.ListDisks:
		return s.Disks(ctx)
	}
	return nil, fmt.Errorf("not a list command: %s", name)
}

// CompactLine serializes a query result as the single-line JSON array
// the wire protocol requires.
func CompactLine(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Pretty serializes a query result for the operator console.
func Pretty(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
