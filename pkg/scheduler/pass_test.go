package scheduler

import (
	"testing"
	"time"

	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPass(t *testing.T, store storage.Store, entries []*types.HostQueueEntry) *Pass {
	t.Helper()
	idx, err := BuildIndex(store, entries)
	require.NoError(t, err)
	filter := NewEligibilityFilter(idx, DefaultConfig())
	return NewPass(store, idx, filter, zerolog.Nop())
}

// seedEntry persists the entry so the lease commit's AssignEntry write
// has a record to update, then returns it for in-pass use
func seedEntry(t *testing.T, store storage.Store, entry *types.HostQueueEntry) *types.HostQueueEntry {
	t.Helper()
	if entry.Status == "" {
		entry.Status = types.EntryStatusQueued
	}
	require.NoError(t, store.CreateEntry(entry))
	return entry
}

func TestScheduleEntryFirstEligibleWins(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedHost(t, store, "h2", "host2", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:       "hqe-1",
		JobID:    "j1",
		MetaHost: "board_kukui",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	// Candidates walk in ascending host-id order
	assert.Equal(t, "h1", assignment.HostID)
}

func TestScheduleEntrySkipsLockedHost(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	host, err := store.GetHost("h1")
	require.NoError(t, err)
	host.Locked = true
	host.LockedBy = "operator"
	require.NoError(t, store.UpdateHost(host))

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:       "hqe-1",
		JobID:    "j1",
		MetaHost: "board_kukui",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestScheduleEntrySkipsIneligibleHost(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedHost(t, store, "h2", "host2", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:              "hqe-1",
		JobID:           "j1",
		MetaHost:        "board_kukui",
		IneligibleHosts: []string{"h1"},
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "h2", assignment.HostID)
}

func TestScheduleEntryConjunctiveExpression(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedHost(t, store, "h2", "host2", "board_kukui", "has_servo")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:       "hqe-1",
		JobID:    "j1",
		MetaHost: "board_kukui+has_servo",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "h2", assignment.HostID)
}

func TestScheduleEntryLostLeaseRaceWalksOn(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedHost(t, store, "h2", "host2", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:       "hqe-1",
		JobID:    "j1",
		MetaHost: "board_kukui",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	// Another process takes h1 after the snapshot was built. The pass
	// still sees h1 as available, loses the lease race, and moves on to
	// the next candidate.
	_, err := store.LeaseHost("h1", "hqe-other")
	require.NoError(t, err)

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "h2", assignment.HostID)
}

func TestScheduleEntryLostLeaseRaceNoFallback(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:       "hqe-1",
		JobID:    "j1",
		MetaHost: "board_kukui",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	_, err := store.LeaseHost("h1", "hqe-other")
	require.NoError(t, err)

	// Losing the race with no remaining candidates is a deferral, not
	// an error.
	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestScheduleDirectEntry(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h1",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "h1", assignment.HostID)
}

func TestScheduleDirectEntryValidatesHost(t *testing.T) {
	store := newTestStore(t)

	locked := &types.Host{
		ID:       "h1",
		Hostname: "host1",
		Status:   types.HostStatusReady,
		Locked:   true,
		LockedBy: "operator",
	}
	require.NoError(t, store.CreateHost(locked))
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h1",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	// A pre-assigned host that fails eligibility defers the entry
	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestScheduleDirectEntryUnknownHost(t *testing.T) {
	store := newTestStore(t)
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:     "hqe-1",
		JobID:  "j1",
		HostID: "h-gone",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestPassExcludesSnapshotLeasedHosts(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	// Host already leased when the snapshot is taken: it never enters
	// the available pool.
	_, err := store.LeaseHost("h1", "hqe-earlier")
	require.NoError(t, err)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:       "hqe-1",
		JobID:    "j1",
		MetaHost: "board_kukui",
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestPopHostIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entry := seedEntry(t, store, &types.HostQueueEntry{
		ID:        "hqe-1",
		JobID:     "j1",
		MetaHost:  "board_kukui",
		CreatedAt: time.Now(),
	})
	pass := newTestPass(t, store, []*types.HostQueueEntry{entry})

	pass.PopHost("h1")
	pass.PopHost("h1")
	pass.PopHost("h-unknown")

	// The popped host is gone for the rest of the pass
	assignment, err := pass.ScheduleEntry(entry)
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestPassAssignmentsAccumulate(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedHost(t, store, "h2", "host2", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	entries := []*types.HostQueueEntry{
		seedEntry(t, store, &types.HostQueueEntry{ID: "hqe-1", JobID: "j1", MetaHost: "board_kukui"}),
		seedEntry(t, store, &types.HostQueueEntry{ID: "hqe-2", JobID: "j1", MetaHost: "board_kukui"}),
	}
	pass := newTestPass(t, store, entries)

	for _, entry := range entries {
		_, err := pass.ScheduleEntry(entry)
		require.NoError(t, err)
	}

	assignments := pass.Assignments()
	require.Len(t, assignments, 2)
	assert.NotEqual(t, assignments[0].HostID, assignments[1].HostID)
}
