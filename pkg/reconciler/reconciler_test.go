package reconciler

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedLeasedHost(t *testing.T, store storage.Store, hostID, entryID string) {
	t.Helper()
	require.NoError(t, store.CreateHost(&types.Host{
		ID:       hostID,
		Hostname: hostID,
		Status:   types.HostStatusReady,
	}))
	_, err := store.LeaseHost(hostID, entryID)
	require.NoError(t, err)
}

func TestReconcileReleasesLeaseOfFinishedEntry(t *testing.T) {
	store := newTestStore(t)
	seedLeasedHost(t, store, "h1", "hqe-1")
	require.NoError(t, store.CreateEntry(&types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h1",
		Status: types.EntryStatusCompleted,
	}))

	r := NewReconciler(store, nil, time.Minute)
	require.NoError(t, r.Reconcile())

	host, err := store.GetHost("h1")
	require.NoError(t, err)
	assert.False(t, host.Leased)
	assert.Equal(t, types.HostStatusReady, host.Status)
}

func TestReconcileReleasesLeaseOfMissingEntry(t *testing.T) {
	store := newTestStore(t)
	seedLeasedHost(t, store, "h1", "hqe-gone")

	r := NewReconciler(store, nil, time.Minute)
	require.NoError(t, r.Reconcile())

	host, err := store.GetHost("h1")
	require.NoError(t, err)
	assert.False(t, host.Leased)
}

func TestReconcileReleasesAbandonedLease(t *testing.T) {
	store := newTestStore(t)
	seedLeasedHost(t, store, "h1", "hqe-1")
	require.NoError(t, store.CreateHost(&types.Host{
		ID:       "h2",
		Hostname: "h2",
		Status:   types.HostStatusReady,
	}))
	// The entry moved on to h2 but h1's lease was never cleaned up
	require.NoError(t, store.CreateEntry(&types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h2",
		Status: types.EntryStatusRunning,
	}))

	r := NewReconciler(store, nil, time.Minute)
	require.NoError(t, r.Reconcile())

	host, err := store.GetHost("h1")
	require.NoError(t, err)
	assert.False(t, host.Leased)
}

func TestReconcileKeepsHealthyLease(t *testing.T) {
	store := newTestStore(t)
	seedLeasedHost(t, store, "h1", "hqe-1")
	require.NoError(t, store.CreateEntry(&types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h1",
		Status: types.EntryStatusRunning,
	}))

	r := NewReconciler(store, nil, time.Minute)
	require.NoError(t, r.Reconcile())

	host, err := store.GetHost("h1")
	require.NoError(t, err)
	assert.True(t, host.Leased)
	assert.Equal(t, "hqe-1", host.LeasedTo)
}

func TestReconcileDetectsOverlappingAssignments(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateHost(&types.Host{
		ID:       "h1",
		Hostname: "h1",
		Status:   types.HostStatusReady,
	}))
	// Two active entries claim the same host. The sweep reports it but
	// leaves both entries untouched.
	require.NoError(t, store.CreateEntry(&types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h1",
		Status: types.EntryStatusRunning,
	}))
	require.NoError(t, store.CreateEntry(&types.HostQueueEntry{
		ID:     "hqe-2",
		JobID:  "j2",
		HostID: "h1",
		Status: types.EntryStatusAssigned,
	}))

	r := NewReconciler(store, nil, time.Minute)
	require.NoError(t, r.Reconcile())

	first, err := store.GetEntry("hqe-1")
	require.NoError(t, err)
	assert.Equal(t, types.EntryStatusRunning, first.Status)

	second, err := store.GetEntry("hqe-2")
	require.NoError(t, err)
	assert.Equal(t, types.EntryStatusAssigned, second.Status)
}

func TestReconcilerStartStop(t *testing.T) {
	store := newTestStore(t)

	r := NewReconciler(store, nil, 10*time.Millisecond)
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	r.Stop() // Safe to call twice
}
