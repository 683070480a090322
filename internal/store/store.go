// Package store is the durable side of the inventory: the historical
// record of every machine that ever authenticated and every disk ever
// declared. Rows are upserted, never deleted; last writer wins.
package store

import (
	"context"
	"time"

	"github.com/jbweber/homelab/croft/internal/vm"
)

// Machine is one row of the machines table.
type Machine struct {
	ID         string    `json:"vm_id"`
	RAM        int64     `json:"ram"`
	CPU        int64     `json:"cpu"`
	Authorized bool      `json:"authorized"`
	LastSeen   time.Time `json:"last_seen"`
}

// Disk is one row of the disks table joined to its owning machine.
// MachineID is nil when the owner cannot be resolved.
type Disk struct {
	ID        string  `json:"disk_id"`
	Capacity  int64   `json:"capacity"`
	MachineID *string `json:"vm_id"`
}

// Store is the durable inventory service. Implementations provide
// their own connection pooling and per-call concurrency safety;
// callers never see transactions spanning multiple operations.
type Store interface {
	// UpsertMachine inserts the machine row or, on id conflict,
	// overwrites ram/cpu/authorized and refreshes last_seen.
	UpsertMachine(ctx context.Context, m vm.Machine) error

	// UpsertDisk inserts the disk row or, on id conflict, overwrites
	// capacity and owning machine. Ownership follows the last writer.
	UpsertDisk(ctx context.Context, machineID string, d vm.Disk) error

	// ListAuthorized returns machines whose authorized flag is set.
	ListAuthorized(ctx context.Context) ([]Machine, error)

	// ListAll returns every machine row ever upserted.
	ListAll(ctx context.Context) ([]Machine, error)

	// ListDisks returns every disk with its owning machine id, if the
	// owner resolves (left join).
	ListDisks(ctx context.Context) ([]Disk, error)

	Close() error
}

// SaveMachine persists one machine and all of its disks as separate
// upserts. The two writes are deliberately not wrapped in a single
// transaction; a crash between them leaves the tables eventually
// consistent on the next mutating command.
func SaveMachine(ctx context.Context, s Store, m vm.Machine) error {
	if err := s.UpsertMachine(ctx, m); err != nil {
		return err
	}
	for _, d := range m.Disks {
		if err := s.UpsertDisk(ctx, m.ID, d); err != nil {
			return err
		}
	}
	return nil
}
