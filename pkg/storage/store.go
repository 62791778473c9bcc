package storage

import (
	"errors"

	"github.com/cuemby/hutch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrHostUnavailable is returned by LeaseHost when the host is
	// already leased, locked, or not in a usable status at commit
	// time. Schedulers treat it as a benign per-host eligibility
	// failure, never as a fatal error.
	ErrHostUnavailable = errors.New("host unavailable for lease")
)

// Store defines the interface for lab state storage.
// Implemented by BoltDB-backed storage.
type Store interface {
	// Hosts
	CreateHost(host *types.Host) error
	GetHost(id string) (*types.Host, error)
	GetHostByHostname(hostname string) (*types.Host, error)
	ListHosts() ([]*types.Host, error)
	ListHostsWithLabel(label string) ([]*types.Host, error)
	UpdateHost(host *types.Host) error
	DeleteHost(id string) error

	// Leasing. LeaseHost is the durable commit point for a scheduling
	// decision: it performs a read-modify-write in a single storage
	// transaction and fails with ErrHostUnavailable if the host was
	// taken by a concurrent scheduler. ReleaseHost is idempotent.
	LeaseHost(hostID, entryID string) (*types.Host, error)
	ReleaseHost(hostID string) error
	SetHostStatus(hostID string, status types.HostStatus) error

	// Jobs
	CreateJob(job *types.Job) error
	GetJob(id string) (*types.Job, error)
	GetJobs(ids []string) (map[string]*types.Job, error)
	ListJobs() ([]*types.Job, error)
	DeleteJob(id string) error

	// Queue entries
	CreateEntry(entry *types.HostQueueEntry) error
	GetEntry(id string) (*types.HostQueueEntry, error)
	ListEntries() ([]*types.HostQueueEntry, error)
	ListEntriesByJob(jobID string) ([]*types.HostQueueEntry, error)
	ListPendingEntries() ([]*types.HostQueueEntry, error)
	UpdateEntry(entry *types.HostQueueEntry) error
	AssignEntry(entryID, hostID string) error
	AddIneligibleHost(entryID, hostID string) error
	DeleteEntry(id string) error

	// ACL groups
	CreateACLGroup(group *types.ACLGroup) error
	GetACLGroup(name string) (*types.ACLGroup, error)
	ListACLGroups() ([]*types.ACLGroup, error)
	UpdateACLGroup(group *types.ACLGroup) error
	DeleteACLGroup(name string) error

	// Batched scheduler queries. These feed the per-pass index build
	// and are keyed by id to avoid N+1 query patterns.
	GetHostLabels(hostIDs []string) (map[string][]string, error)
	GetJobACLGroups(jobIDs []string) (map[string][]string, error)
	GetJobDependencies(jobIDs []string) (map[string][]string, error)

	// Utility
	Close() error
}
