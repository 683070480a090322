package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jbweber/homelab/croft/internal/inventory"
	"github.com/jbweber/homelab/croft/internal/registry"
	"github.com/jbweber/homelab/croft/internal/store"
	"github.com/jbweber/homelab/croft/internal/testutil"
	"github.com/jbweber/homelab/croft/internal/vm"
)

type fakeSession struct {
	machine vm.Machine
}

func (f *fakeSession) Machine() vm.Machine { return f.machine.Clone() }
func (f *fakeSession) Shutdown(string)     {}

func setupTestAPI(t *testing.T, testName string) (*httptest.Server, *registry.Registry, store.Store) {
	t.Helper()

	st, err := store.OpenSQLite(testutil.NewTestDSN(testName))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Logf("Warning: failed to close test store: %v", err)
		}
	})

	reg := registry.New()
	a := NewAPI(inventory.New(reg, st), zaptest.NewLogger(t))

	r := chi.NewRouter()
	a.RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return ts, reg, st
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAPI_Health(t *testing.T) {
	ts, _, _ := setupTestAPI(t, "TestAPI_Health")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ListConnected(t *testing.T) {
	ts, reg, _ := setupTestAPI(t, "TestAPI_ListConnected")

	var machines []vm.Machine
	getJSON(t, ts.URL+"/v1/machines/connected", &machines)
	assert.Empty(t, machines)

	reg.Put("vm1", &fakeSession{machine: vm.Machine{ID: "vm1", RAM: 2048, CPU: 2, Authorized: true}})
	reg.Put("vm2", &fakeSession{machine: vm.Machine{ID: "vm2", Authorized: true}})

	getJSON(t, ts.URL+"/v1/machines/connected", &machines)
	require.Len(t, machines, 2)
	assert.Equal(t, "vm1", machines[0].ID)
	assert.Equal(t, int64(2048), machines[0].RAM)
	assert.Equal(t, "vm2", machines[1].ID)
}

func TestAPI_ListMachines(t *testing.T) {
	ts, _, st := setupTestAPI(t, "TestAPI_ListMachines")
	ctx := context.Background()

	require.NoError(t, st.UpsertMachine(ctx, vm.Machine{ID: "vm1", RAM: 1024, CPU: 1, Authorized: true}))
	require.NoError(t, st.UpsertMachine(ctx, vm.Machine{ID: "vm2", RAM: 2048, CPU: 2, Authorized: false}))

	var all []store.Machine
	getJSON(t, ts.URL+"/v1/machines", &all)
	require.Len(t, all, 2)
	assert.Equal(t, "vm1", all[0].ID)
	assert.Equal(t, "vm2", all[1].ID)

	var authorized []store.Machine
	getJSON(t, ts.URL+"/v1/machines/authorized", &authorized)
	require.Len(t, authorized, 1)
	assert.Equal(t, "vm1", authorized[0].ID)
}

func TestAPI_ListDisks(t *testing.T) {
	ts, _, st := setupTestAPI(t, "TestAPI_ListDisks")
	ctx := context.Background()

	var disks []store.Disk
	getJSON(t, ts.URL+"/v1/disks", &disks)
	assert.Empty(t, disks)

	require.NoError(t, st.UpsertMachine(ctx, vm.Machine{ID: "vm1", Authorized: true}))
	require.NoError(t, st.UpsertDisk(ctx, "vm1", vm.Disk{ID: "d1", Capacity: 100}))

	getJSON(t, ts.URL+"/v1/disks", &disks)
	require.Len(t, disks, 1)
	assert.Equal(t, "d1", disks[0].ID)
	assert.Equal(t, int64(100), disks[0].Capacity)
	require.NotNil(t, disks[0].MachineID)
	assert.Equal(t, "vm1", *disks[0].MachineID)
}
