package scheduler

import (
	"testing"

	"github.com/cuemby/hutch/pkg/types"
	"github.com/stretchr/testify/assert"
)

func newTestFilter(idx *Index) *EligibilityFilter {
	if idx.JobDeps == nil {
		idx.JobDeps = map[string]map[string]struct{}{}
	}
	if idx.JobACLs == nil {
		idx.JobACLs = map[string]map[string]struct{}{}
	}
	if idx.HostACLs == nil {
		idx.HostACLs = map[string]map[string]struct{}{}
	}
	return NewEligibilityFilter(idx, DefaultConfig())
}

func TestHostUsable(t *testing.T) {
	filter := newTestFilter(&Index{})

	tests := []struct {
		name string
		host types.Host
		want bool
	}{
		{"ready and unlocked", types.Host{Status: types.HostStatusReady}, true},
		{"locked", types.Host{Status: types.HostStatusReady, Locked: true}, false},
		{"repair failed", types.Host{Status: types.HostStatusRepairFailed}, false},
		{"running", types.Host{Status: types.HostStatusRunning}, false},
		{"cleaning", types.Host{Status: types.HostStatusCleaning}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.HostUsable(&tt.host))
		})
	}
}

func TestIsEligibleIneligibleHostsSticky(t *testing.T) {
	filter := newTestFilter(&Index{})

	host := &types.Host{ID: "h1", Status: types.HostStatusReady}
	entry := &types.HostQueueEntry{ID: "hqe-1", JobID: "j1"}

	assert.True(t, filter.IsEligible(host, entry))

	entry.IneligibleHosts = []string{"h1"}
	assert.False(t, filter.IsEligible(host, entry))
}

func TestIsEligibleACLGating(t *testing.T) {
	idx := &Index{
		JobACLs: map[string]map[string]struct{}{
			"j-restricted": {"acl_cros": {}},
		},
		HostACLs: map[string]map[string]struct{}{
			"h-member": {"acl_cros": {}},
			"h-other":  {"acl_unrelated": {}},
		},
	}
	filter := newTestFilter(idx)

	member := &types.Host{ID: "h-member", Status: types.HostStatusReady}
	other := &types.Host{ID: "h-other", Status: types.HostStatusReady}
	outsider := &types.Host{ID: "h-outsider", Status: types.HostStatusReady}

	restricted := &types.HostQueueEntry{ID: "hqe-1", JobID: "j-restricted"}
	assert.True(t, filter.IsEligible(member, restricted))
	assert.False(t, filter.IsEligible(other, restricted))
	assert.False(t, filter.IsEligible(outsider, restricted))

	// A job with no ACL groups may use any host
	open := &types.HostQueueEntry{ID: "hqe-2", JobID: "j-open"}
	assert.True(t, filter.IsEligible(outsider, open))
}

func TestIsEligibleDependencies(t *testing.T) {
	idx := &Index{
		JobDeps: map[string]map[string]struct{}{
			"j1": {"board_kukui": {}, "has_servo": {}},
		},
	}
	filter := newTestFilter(idx)
	entry := &types.HostQueueEntry{ID: "hqe-1", JobID: "j1"}

	full := &types.Host{
		ID:     "h1",
		Status: types.HostStatusReady,
		Labels: []string{"board_kukui", "has_servo"},
	}
	partial := &types.Host{
		ID:     "h2",
		Status: types.HostStatusReady,
		Labels: []string{"board_kukui"},
	}

	assert.True(t, filter.IsEligible(full, entry))
	assert.False(t, filter.IsEligible(partial, entry))
}

func TestIsEligibleSkipsProvisionLabels(t *testing.T) {
	// cros-version names provisioning work, not a capability the host
	// must already carry, so it never blocks eligibility.
	idx := &Index{
		JobDeps: map[string]map[string]struct{}{
			"j1": {"board_kukui": {}, "cros-version:R80-12739.0.0": {}},
		},
	}
	filter := newTestFilter(idx)
	entry := &types.HostQueueEntry{ID: "hqe-1", JobID: "j1"}

	host := &types.Host{
		ID:     "h1",
		Status: types.HostStatusReady,
		Labels: []string{"board_kukui"},
	}
	assert.True(t, filter.IsEligible(host, entry))
}
