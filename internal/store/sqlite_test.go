package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/croft/internal/testutil"
	"github.com/jbweber/homelab/croft/internal/vm"
)

func newTestStore(t *testing.T, testName string) *SQLite {
	t.Helper()
	s, err := OpenSQLite(testutil.NewTestDSN(testName))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("Warning: failed to close test store: %v", err)
		}
	})
	return s
}

func TestSQLite_UpsertMachine(t *testing.T) {
	s := newTestStore(t, "TestSQLite_UpsertMachine")
	ctx := context.Background()

	m := vm.Machine{ID: "vm1", RAM: 2048, CPU: 2, Authorized: true}
	require.NoError(t, s.UpsertMachine(ctx, m))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "vm1", all[0].ID)
	assert.Equal(t, int64(2048), all[0].RAM)
	assert.Equal(t, int64(2), all[0].CPU)
	assert.True(t, all[0].Authorized)
	assert.False(t, all[0].LastSeen.IsZero())

	// Upserting the same id overwrites instead of duplicating
	m.RAM = 4096
	m.Authorized = false
	require.NoError(t, s.UpsertMachine(ctx, m))

	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(4096), all[0].RAM)
	assert.False(t, all[0].Authorized)
}

func TestSQLite_ListAuthorized(t *testing.T) {
	s := newTestStore(t, "TestSQLite_ListAuthorized")
	ctx := context.Background()

	require.NoError(t, s.UpsertMachine(ctx, vm.Machine{ID: "vm1", Authorized: true}))
	require.NoError(t, s.UpsertMachine(ctx, vm.Machine{ID: "vm2", Authorized: false}))
	require.NoError(t, s.UpsertMachine(ctx, vm.Machine{ID: "vm3", Authorized: true}))

	authorized, err := s.ListAuthorized(ctx)
	require.NoError(t, err)
	require.Len(t, authorized, 2)
	assert.Equal(t, "vm1", authorized[0].ID)
	assert.Equal(t, "vm3", authorized[1].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_UpsertDiskLastWriterWins(t *testing.T) {
	s := newTestStore(t, "TestSQLite_UpsertDiskLastWriterWins")
	ctx := context.Background()

	require.NoError(t, s.UpsertMachine(ctx, vm.Machine{ID: "vm1", Authorized: true}))
	require.NoError(t, s.UpsertMachine(ctx, vm.Machine{ID: "vm2", Authorized: true}))

	// dX declared by vm1, then re-declared by vm2 with a new capacity
	require.NoError(t, s.UpsertDisk(ctx, "vm1", vm.Disk{ID: "dX", Capacity: 10}))
	require.NoError(t, s.UpsertDisk(ctx, "vm2", vm.Disk{ID: "dX", Capacity: 20}))

	disks, err := s.ListDisks(ctx)
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "dX", disks[0].ID)
	assert.Equal(t, int64(20), disks[0].Capacity)
	require.NotNil(t, disks[0].MachineID)
	assert.Equal(t, "vm2", *disks[0].MachineID)
}

func TestSQLite_ListDisksJoinsOwner(t *testing.T) {
	s := newTestStore(t, "TestSQLite_ListDisksJoinsOwner")
	ctx := context.Background()

	require.NoError(t, s.UpsertMachine(ctx, vm.Machine{ID: "vm1", Authorized: true}))
	require.NoError(t, s.UpsertDisk(ctx, "vm1", vm.Disk{ID: "d1", Capacity: 100}))
	require.NoError(t, s.UpsertDisk(ctx, "vm1", vm.Disk{ID: "d2", Capacity: 200}))

	disks, err := s.ListDisks(ctx)
	require.NoError(t, err)
	require.Len(t, disks, 2)
	assert.Equal(t, "d1", disks[0].ID)
	assert.Equal(t, int64(100), disks[0].Capacity)
	require.NotNil(t, disks[0].MachineID)
	assert.Equal(t, "vm1", *disks[0].MachineID)
	assert.Equal(t, "d2", disks[1].ID)
}

func TestSaveMachine(t *testing.T) {
	s := newTestStore(t, "TestSaveMachine")
	ctx := context.Background()

	m := vm.Machine{
		ID:         "vm1",
		RAM:        2048,
		CPU:        2,
		Authorized: true,
		Disks: []vm.Disk{
			{ID: "d1", Capacity: 100},
			{ID: "d2", Capacity: 200},
		},
	}
	require.NoError(t, SaveMachine(ctx, s, m))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	disks, err := s.ListDisks(ctx)
	require.NoError(t, err)
	assert.Len(t, disks, 2)
}

func TestSQLite_EmptyLists(t *testing.T) {
	s := newTestStore(t, "TestSQLite_EmptyLists")
	ctx := context.Background()

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	disks, err := s.ListDisks(ctx)
	require.NoError(t, err)
	assert.Empty(t, disks)
}
