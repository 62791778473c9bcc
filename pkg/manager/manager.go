package manager

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/google/uuid"
)

// Manager is the entity-store facade: it owns the storage handle and
// the event broker, and exposes the mutations lab tooling performs
// (inventory changes, job submission, entry completion). The scheduler
// consumes the store read-only through the same handle.
type Manager struct {
	store       storage.Store
	eventBroker *events.Broker
}

// Config holds configuration for creating a Manager
type Config struct {
	DataDir string
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	eventBroker := events.NewBroker()
	eventBroker.Start()

	return &Manager{
		store:       store,
		eventBroker: eventBroker,
	}, nil
}

// Store returns the underlying storage handle
func (m *Manager) Store() storage.Store {
	return m.store
}

// EventBroker returns the event broker
func (m *Manager) EventBroker() *events.Broker {
	return m.eventBroker
}

// Shutdown stops the broker and closes the store
func (m *Manager) Shutdown() error {
	m.eventBroker.Stop()
	return m.store.Close()
}

// Host inventory operations

// AddHost registers a new host in the lab inventory
func (m *Manager) AddHost(hostname string, labels []string) (*types.Host, error) {
	if hostname == "" {
		return nil, fmt.Errorf("hostname is required")
	}
	if existing, err := m.store.GetHostByHostname(hostname); err == nil && existing != nil {
		return nil, fmt.Errorf("host %s already exists", hostname)
	}

	host := &types.Host{
		ID:        uuid.New().String(),
		Hostname:  hostname,
		Status:    types.HostStatusReady,
		Labels:    labels,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := m.store.CreateHost(host); err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	m.publish(events.EventHostAdded, "host added to inventory", map[string]string{
		"host_id":  host.ID,
		"hostname": host.Hostname,
	})
	return host, nil
}

// RemoveHost deletes a host from the inventory. Leased hosts cannot be
// removed; the lease must finish or be aborted first.
func (m *Manager) RemoveHost(id string) error {
	host, err := m.store.GetHost(id)
	if err != nil {
		return err
	}
	if host.Leased {
		return fmt.Errorf("host %s is leased to %s", host.Hostname, host.LeasedTo)
	}
	if err := m.store.DeleteHost(id); err != nil {
		return err
	}
	m.publish(events.EventHostRemoved, "host removed from inventory", map[string]string{
		"host_id":  host.ID,
		"hostname": host.Hostname,
	})
	return nil
}

// LockHost takes a host out of scheduling on behalf of an operator
func (m *Manager) LockHost(id, lockedBy string) error {
	host, err := m.store.GetHost(id)
	if err != nil {
		return err
	}
	if host.Locked {
		return fmt.Errorf("host %s already locked by %s", host.Hostname, host.LockedBy)
	}
	host.Locked = true
	host.LockedBy = lockedBy
	host.LockedAt = time.Now()
	if err := m.store.UpdateHost(host); err != nil {
		return err
	}
	m.publish(events.EventHostLocked, "host locked", map[string]string{
		"host_id":   host.ID,
		"hostname":  host.Hostname,
		"locked_by": lockedBy,
	})
	return nil
}

// UnlockHost returns a locked host to scheduling
func (m *Manager) UnlockHost(id string) error {
	host, err := m.store.GetHost(id)
	if err != nil {
		return err
	}
	if !host.Locked {
		return nil
	}
	host.Locked = false
	host.LockedBy = ""
	if err := m.store.UpdateHost(host); err != nil {
		return err
	}
	m.publish(events.EventHostUnlocked, "host unlocked", map[string]string{
		"host_id":  host.ID,
		"hostname": host.Hostname,
	})
	return nil
}

// Job submission

// JobSpec describes a job to submit: metadata plus the hosts it wants,
// as concrete hostnames and/or meta-host label expressions. One queue
// entry is fanned out per hostname and per expression.
type JobSpec struct {
	Name         string
	Owner        string
	Priority     int
	ACLGroups    []string
	Dependencies []string
	Hosts        []string // Concrete hostnames
	MetaHosts    []string // Label expressions, one entry each
	ParentJobID  string
}

// SubmitJob creates a job and its queue entries
func (m *Manager) SubmitJob(spec JobSpec) (*types.Job, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if len(spec.Hosts) == 0 && len(spec.MetaHosts) == 0 {
		return nil, fmt.Errorf("job needs at least one host or meta-host")
	}

	job := &types.Job{
		ID:           uuid.New().String(),
		Name:         spec.Name,
		Owner:        spec.Owner,
		Priority:     spec.Priority,
		ACLGroups:    spec.ACLGroups,
		Dependencies: spec.Dependencies,
		ParentJobID:  spec.ParentJobID,
		CreatedAt:    time.Now(),
	}
	if err := m.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	for _, hostname := range spec.Hosts {
		host, err := m.store.GetHostByHostname(hostname)
		if err != nil {
			return nil, fmt.Errorf("unknown host %s: %w", hostname, err)
		}
		entry := &types.HostQueueEntry{
			ID:        uuid.New().String(),
			JobID:     job.ID,
			HostID:    host.ID,
			Status:    types.EntryStatusQueued,
			CreatedAt: time.Now(),
		}
		if err := m.store.CreateEntry(entry); err != nil {
			return nil, fmt.Errorf("failed to create queue entry: %w", err)
		}
	}

	for _, expr := range spec.MetaHosts {
		entry := &types.HostQueueEntry{
			ID:        uuid.New().String(),
			JobID:     job.ID,
			MetaHost:  expr,
			Status:    types.EntryStatusQueued,
			CreatedAt: time.Now(),
		}
		if err := m.store.CreateEntry(entry); err != nil {
			return nil, fmt.Errorf("failed to create queue entry: %w", err)
		}
	}

	m.publish(events.EventJobCreated, "job submitted", map[string]string{
		"job_id": job.ID,
		"name":   job.Name,
		"owner":  job.Owner,
	})
	return job, nil
}

// Queue entry lifecycle

// MarkEntryRunning records that the dispatched job started on its host
func (m *Manager) MarkEntryRunning(entryID string) error {
	entry, err := m.store.GetEntry(entryID)
	if err != nil {
		return err
	}
	if entry.Status != types.EntryStatusAssigned {
		return fmt.Errorf("entry %s is %s, not assigned", entryID, entry.Status)
	}
	entry.Status = types.EntryStatusRunning
	if err := m.store.UpdateEntry(entry); err != nil {
		return err
	}
	return m.store.SetHostStatus(entry.HostID, types.HostStatusRunning)
}

// CompleteEntry finishes an entry and releases its host
func (m *Manager) CompleteEntry(entryID string) error {
	return m.finishEntry(entryID, types.EntryStatusCompleted, events.EventEntryComplete)
}

// AbortEntry aborts an entry, releasing its host if one was leased
func (m *Manager) AbortEntry(entryID string) error {
	return m.finishEntry(entryID, types.EntryStatusAborted, events.EventEntryAborted)
}

func (m *Manager) finishEntry(entryID string, status types.EntryStatus, eventType events.EventType) error {
	entry, err := m.store.GetEntry(entryID)
	if err != nil {
		return err
	}
	if entry.Status.Terminal() {
		return nil
	}

	if entry.HostID != "" && entry.Status.Active() {
		if err := m.store.ReleaseHost(entry.HostID); err != nil {
			return err
		}
		m.publish(events.EventHostReleased, "host released", map[string]string{
			"host_id":  entry.HostID,
			"entry_id": entry.ID,
		})
	}

	entry.Status = status
	if err := m.store.UpdateEntry(entry); err != nil {
		return err
	}
	m.publish(eventType, "queue entry finished", map[string]string{
		"entry_id": entry.ID,
		"job_id":   entry.JobID,
	})
	return nil
}

// FailEntry records a failed run and releases the host. A meta-host
// entry excludes the failed host and requeues so the next pass resolves
// a different one. A pinned entry has no other host to try, so its
// failure is terminal.
func (m *Manager) FailEntry(entryID string) error {
	entry, err := m.store.GetEntry(entryID)
	if err != nil {
		return err
	}
	if entry.HostID == "" {
		return fmt.Errorf("entry %s has no host to fail", entryID)
	}

	failedHost := entry.HostID
	if err := m.store.ReleaseHost(failedHost); err != nil {
		return err
	}

	if entry.MetaHost == "" {
		entry.Status = types.EntryStatusAborted
		if err := m.store.UpdateEntry(entry); err != nil {
			return err
		}
		m.publish(events.EventEntryFailed, "run failed on pinned host, entry aborted", map[string]string{
			"entry_id":    entry.ID,
			"job_id":      entry.JobID,
			"failed_host": failedHost,
		})
		return nil
	}

	if err := m.store.AddIneligibleHost(entryID, failedHost); err != nil {
		return err
	}

	// Re-read: AddIneligibleHost rewrote the record
	entry, err = m.store.GetEntry(entryID)
	if err != nil {
		return err
	}
	// The assignment came from label resolution; clear it so the next
	// pass picks a different host.
	entry.HostID = ""
	entry.Status = types.EntryStatusQueued
	entry.AssignedAt = time.Time{}
	if err := m.store.UpdateEntry(entry); err != nil {
		return err
	}

	m.publish(events.EventEntryFailed, "run failed, entry requeued", map[string]string{
		"entry_id":    entry.ID,
		"job_id":      entry.JobID,
		"failed_host": failedHost,
	})
	return nil
}

// ACL group operations

// CreateACLGroup creates an empty ACL group
func (m *Manager) CreateACLGroup(name string, users []string) (*types.ACLGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	group := &types.ACLGroup{
		Name:      name,
		Users:     users,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateACLGroup(group); err != nil {
		return nil, err
	}
	return group, nil
}

// GrantHost adds a host to an ACL group
func (m *Manager) GrantHost(groupName, hostname string) error {
	group, err := m.store.GetACLGroup(groupName)
	if err != nil {
		return err
	}
	host, err := m.store.GetHostByHostname(hostname)
	if err != nil {
		return err
	}
	if group.ContainsHost(host.ID) {
		return nil
	}
	group.Hosts = append(group.Hosts, host.ID)
	return m.store.UpdateACLGroup(group)
}

// Read passthroughs

func (m *Manager) GetHost(id string) (*types.Host, error) {
	return m.store.GetHost(id)
}

func (m *Manager) GetHostByHostname(hostname string) (*types.Host, error) {
	return m.store.GetHostByHostname(hostname)
}

func (m *Manager) ListHosts() ([]*types.Host, error) {
	return m.store.ListHosts()
}

func (m *Manager) GetJob(id string) (*types.Job, error) {
	return m.store.GetJob(id)
}

func (m *Manager) ListJobs() ([]*types.Job, error) {
	return m.store.ListJobs()
}

func (m *Manager) ListEntriesByJob(jobID string) ([]*types.HostQueueEntry, error) {
	return m.store.ListEntriesByJob(jobID)
}

func (m *Manager) ListPendingEntries() ([]*types.HostQueueEntry, error) {
	return m.store.ListPendingEntries()
}

func (m *Manager) publish(eventType events.EventType, message string, metadata map[string]string) {
	m.eventBroker.Publish(&events.Event{
		ID:       uuid.New().String(),
		Type:     eventType,
		Message:  message,
		Metadata: metadata,
	})
}
