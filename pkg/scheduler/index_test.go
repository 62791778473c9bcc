package scheduler

import (
	"testing"
	"time"

	"github.com/cuemby/hutch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabelExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"single label", "board_kukui", []string{"board_kukui"}},
		{"conjunction", "board_kukui+has_servo", []string{"board_kukui", "has_servo"}},
		{"whitespace trimmed", " board_kukui + has_servo ", []string{"board_kukui", "has_servo"}},
		{"empty segments dropped", "board_kukui++has_servo", []string{"board_kukui", "has_servo"}},
		{"empty expression", "", nil},
		{"only separators", "++", nil},
		{"whitespace only", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabelExpression(tt.expr))
		})
	}
}

func TestBuildIndex(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h2", "host2", "board_kukui")
	seedHost(t, store, "h1", "host1", "board_kukui", "has_servo")
	seedHost(t, store, "h3", "host3", "board_eve")
	seedJob(t, store, "j1", 10, []string{"has_servo"}, []string{"acl_cros"})
	require.NoError(t, store.CreateACLGroup(&types.ACLGroup{
		Name:  "acl_cros",
		Hosts: []string{"h1", "h2"},
	}))

	entries := []*types.HostQueueEntry{
		{ID: "hqe-1", JobID: "j1", MetaHost: "board_kukui", Status: types.EntryStatusQueued},
	}

	idx, err := BuildIndex(store, entries)
	require.NoError(t, err)

	// Hosts under a label come back in ascending id order
	assert.Equal(t, []string{"h1", "h2"}, idx.LabelHosts["board_kukui"])
	assert.Equal(t, []string{"h1"}, idx.LabelHosts["has_servo"])
	assert.Len(t, idx.Hosts, 3)

	assert.Contains(t, idx.DependenciesFor("j1"), "has_servo")
	assert.Contains(t, idx.ACLGroupsFor("j1"), "acl_cros")
	assert.Contains(t, idx.HostACLs["h1"], "acl_cros")
	assert.NotContains(t, idx.HostACLs, "h3")
}

func TestBuildIndexEmptyBatch(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")

	idx, err := BuildIndex(store, nil)
	require.NoError(t, err)
	assert.Empty(t, idx.Hosts)
	assert.Empty(t, idx.LabelHosts)
}

func TestHostsForLabelExpression(t *testing.T) {
	idx := &Index{
		LabelHosts: map[string][]string{
			"board_kukui": {"h1", "h2", "h3"},
			"has_servo":   {"h2"},
		},
		Hosts: map[string]*types.Host{
			"h1": {ID: "h1", Labels: []string{"board_kukui"}},
			"h2": {ID: "h2", Labels: []string{"board_kukui", "has_servo"}},
			"h3": {ID: "h3", Labels: []string{"board_kukui"}},
		},
	}

	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"single label keeps order", "board_kukui", []string{"h1", "h2", "h3"}},
		{"conjunction narrows", "board_kukui+has_servo", []string{"h2"}},
		{"unknown label", "board_nami", nil},
		{"conjunction with unknown label", "board_kukui+board_nami", []string{}},
		{"empty expression", "", nil},
		{"malformed expression", "++", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.HostsForLabelExpression(tt.expr)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildIndexDeduplicatesJobs(t *testing.T) {
	store := newTestStore(t)
	seedHost(t, store, "h1", "host1", "board_kukui")
	seedJob(t, store, "j1", 10, nil, nil)

	// Two entries from the same job: the job is fetched once and both
	// entries resolve against it.
	entries := []*types.HostQueueEntry{
		{ID: "hqe-1", JobID: "j1", MetaHost: "board_kukui", CreatedAt: time.Now()},
		{ID: "hqe-2", JobID: "j1", MetaHost: "board_kukui", CreatedAt: time.Now()},
	}

	idx, err := BuildIndex(store, entries)
	require.NoError(t, err)
	assert.Len(t, idx.Jobs, 1)
	assert.Contains(t, idx.Jobs, "j1")
}
