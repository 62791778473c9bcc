package types

import (
	"strings"
	"time"
)

// Host represents a physical lab machine that jobs run on
type Host struct {
	ID        string
	Hostname  string
	Status    HostStatus
	Locked    bool
	LockedBy  string
	LockedAt  time.Time
	Leased    bool
	LeasedTo  string // Queue entry ID holding the lease
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasLabel reports whether the host carries the given label
func (h *Host) HasLabel(label string) bool {
	for _, l := range h.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// HostStatus represents the current state of a host
type HostStatus string

const (
	HostStatusReady        HostStatus = "ready"
	HostStatusPending      HostStatus = "pending" // Leased, job about to start
	HostStatusRunning      HostStatus = "running"
	HostStatusProvisioning HostStatus = "provisioning"
	HostStatusVerifying    HostStatus = "verifying"
	HostStatusRepairing    HostStatus = "repairing"
	HostStatusRepairFailed HostStatus = "repair_failed"
	HostStatusCleaning     HostStatus = "cleaning"
)

// Label is a tag attached to a host: a capability, board type, or an
// installed build version. Versioned labels carry a ":value" suffix
// (e.g. "cros-version:R80-12739.0.0").
type Label string

// Base returns the label name without any version suffix
func (l Label) Base() string {
	if i := strings.IndexByte(string(l), ':'); i >= 0 {
		return string(l[:i])
	}
	return string(l)
}

// Value returns the version suffix, or "" for unversioned labels
func (l Label) Value() string {
	if i := strings.IndexByte(string(l), ':'); i >= 0 {
		return string(l[i+1:])
	}
	return ""
}

// IsVersioned reports whether the label carries a ":value" suffix
func (l Label) IsVersioned() bool {
	return strings.IndexByte(string(l), ':') >= 0
}

// Job represents a submitted test job. Jobs are read-only to the
// scheduler; the unit of scheduling work is the HostQueueEntry fanned
// out from a job at submission time.
type Job struct {
	ID           string
	Name         string
	Owner        string
	Priority     int // Higher = more urgent
	ACLGroups    []string
	Dependencies []string // Label names every assigned host must carry
	ParentJobID  string
	CreatedAt    time.Time
}

// HostQueueEntry is one job's request for a host. It references exactly
// one Job and carries either a concrete HostID or a MetaHost label
// expression to be resolved at scheduling time.
type HostQueueEntry struct {
	ID              string
	JobID           string
	HostID          string // Concrete host, set on assignment (or pre-assigned)
	MetaHost        string // "+"-joined label expression, e.g. "board_kukui+has_servo"
	Status          EntryStatus
	IneligibleHosts []string // Hosts tried and failed; excluded for the life of the entry
	CreatedAt       time.Time
	AssignedAt      time.Time
}

// IsMetaHost reports whether the entry's host must be resolved from a
// label expression rather than a concrete pre-assignment
func (e *HostQueueEntry) IsMetaHost() bool {
	return e.HostID == "" && e.MetaHost != ""
}

// IsIneligible reports whether the given host was already tried and
// rejected for this entry
func (e *HostQueueEntry) IsIneligible(hostID string) bool {
	for _, id := range e.IneligibleHosts {
		if id == hostID {
			return true
		}
	}
	return false
}

// EntryStatus represents the state of a queue entry
type EntryStatus string

const (
	EntryStatusQueued    EntryStatus = "queued"
	EntryStatusAssigned  EntryStatus = "assigned" // Host leased, handed to dispatch
	EntryStatusRunning   EntryStatus = "running"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusAborted   EntryStatus = "aborted"
)

// Active reports whether the entry currently holds (or is about to
// hold) a host
func (s EntryStatus) Active() bool {
	return s == EntryStatusAssigned || s == EntryStatusRunning
}

// Terminal reports whether the entry will never be scheduled again
func (s EntryStatus) Terminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusAborted
}

// ACLGroup restricts which hosts a job owner may use. A job carrying
// ACL groups may only lease hosts that are members of at least one of
// those groups.
type ACLGroup struct {
	Name      string
	Users     []string
	Hosts     []string // Host IDs
	CreatedAt time.Time
}

// ContainsHost reports whether the host is a member of the group
func (g *ACLGroup) ContainsHost(hostID string) bool {
	for _, id := range g.Hosts {
		if id == hostID {
			return true
		}
	}
	return false
}

// Assignment is the product of a scheduling pass: one leased (entry,
// host) pairing handed to the dispatch adapter.
type Assignment struct {
	EntryID string
	JobID   string
	HostID  string
}
