package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelBase(t *testing.T) {
	tests := []struct {
		label Label
		base  string
		value string
	}{
		{"board_kukui", "board_kukui", ""},
		{"cros-version:R80-12739.0.0", "cros-version", "R80-12739.0.0"},
		{"fwrw-version:", "fwrw-version", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.base, tt.label.Base())
		assert.Equal(t, tt.value, tt.label.Value())
	}
}

func TestLabelIsVersioned(t *testing.T) {
	assert.True(t, Label("cros-version:R80-12739.0.0").IsVersioned())
	assert.False(t, Label("board_kukui").IsVersioned())
}

func TestHostHasLabel(t *testing.T) {
	host := &Host{Labels: []string{"board_kukui", "has_servo"}}
	assert.True(t, host.HasLabel("has_servo"))
	assert.False(t, host.HasLabel("board_eve"))
}

func TestEntryIsMetaHost(t *testing.T) {
	meta := &HostQueueEntry{MetaHost: "board_kukui"}
	assert.True(t, meta.IsMetaHost())

	// Once assigned, the entry is concrete
	meta.HostID = "h1"
	assert.False(t, meta.IsMetaHost())

	direct := &HostQueueEntry{HostID: "h1"}
	assert.False(t, direct.IsMetaHost())
}

func TestEntryStatusTransitions(t *testing.T) {
	assert.True(t, EntryStatusAssigned.Active())
	assert.True(t, EntryStatusRunning.Active())
	assert.False(t, EntryStatusQueued.Active())

	assert.True(t, EntryStatusCompleted.Terminal())
	assert.True(t, EntryStatusAborted.Terminal())
	assert.False(t, EntryStatusRunning.Terminal())
}

func TestACLGroupContainsHost(t *testing.T) {
	group := &ACLGroup{Name: "acl_cros", Hosts: []string{"h1", "h2"}}
	assert.True(t, group.ContainsHost("h1"))
	assert.False(t, group.ContainsHost("h3"))
}
