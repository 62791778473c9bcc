package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/hutch/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketHosts   = []byte("hosts")
	bucketJobs    = []byte("jobs")
	bucketEntries = []byte("queue_entries")
	bucketACLs    = []byte("acl_groups")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "hutch.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketHosts,
			bucketJobs,
			bucketEntries,
			bucketACLs,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Host operations
func (s *BoltStore) CreateHost(host *types.Host) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putHost(tx, host)
	})
}

func putHost(tx *bolt.Tx, host *types.Host) error {
	b := tx.Bucket(bucketHosts)
	data, err := json.Marshal(host)
	if err != nil {
		return err
	}
	return b.Put([]byte(host.ID), data)
}

func getHost(tx *bolt.Tx, id string) (*types.Host, error) {
	b := tx.Bucket(bucketHosts)
	data := b.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("host %s: %w", id, ErrNotFound)
	}
	var host types.Host
	if err := json.Unmarshal(data, &host); err != nil {
		return nil, err
	}
	return &host, nil
}

func (s *BoltStore) GetHost(id string) (*types.Host, error) {
	var host *types.Host
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		host, err = getHost(tx, id)
		return err
	})
	return host, err
}

func (s *BoltStore) GetHostByHostname(hostname string) (*types.Host, error) {
	var found *types.Host
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		return b.ForEach(func(k, v []byte) error {
			var host types.Host
			if err := json.Unmarshal(v, &host); err != nil {
				return err
			}
			if host.Hostname == hostname {
				found = &host
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("host %s: %w", hostname, ErrNotFound)
	}
	return found, nil
}

func (s *BoltStore) ListHosts() ([]*types.Host, error) {
	var hosts []*types.Host
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		return b.ForEach(func(k, v []byte) error {
			var host types.Host
			if err := json.Unmarshal(v, &host); err != nil {
				return err
			}
			hosts = append(hosts, &host)
			return nil
		})
	})
	return hosts, err
}

func (s *BoltStore) ListHostsWithLabel(label string) ([]*types.Host, error) {
	hosts, err := s.ListHosts()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Host
	for _, host := range hosts {
		if host.HasLabel(label) {
			filtered = append(filtered, host)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateHost(host *types.Host) error {
	host.UpdatedAt = time.Now()
	return s.CreateHost(host) // Same as create (upsert)
}

func (s *BoltStore) DeleteHost(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		return b.Delete([]byte(id))
	})
}

// LeaseHost atomically marks a host leased to a queue entry. The
// availability check and the write happen inside one transaction so two
// scheduler processes racing for the same host cannot both win: the
// loser gets ErrHostUnavailable and moves on to another candidate.
func (s *BoltStore) LeaseHost(hostID, entryID string) (*types.Host, error) {
	var leased *types.Host
	err := s.db.Update(func(tx *bolt.Tx) error {
		host, err := getHost(tx, hostID)
		if err != nil {
			return err
		}
		if host.Leased {
			return fmt.Errorf("host %s already leased to %s: %w",
				hostID, host.LeasedTo, ErrHostUnavailable)
		}
		if host.Locked {
			return fmt.Errorf("host %s locked by %s: %w",
				hostID, host.LockedBy, ErrHostUnavailable)
		}
		if host.Status != types.HostStatusReady {
			return fmt.Errorf("host %s in status %s: %w",
				hostID, host.Status, ErrHostUnavailable)
		}

		host.Leased = true
		host.LeasedTo = entryID
		host.Status = types.HostStatusPending
		host.UpdatedAt = time.Now()
		if err := putHost(tx, host); err != nil {
			return err
		}
		leased = host
		return nil
	})
	return leased, err
}

// ReleaseHost returns a leased host to the ready pool. Releasing a host
// that is not leased is a no-op.
func (s *BoltStore) ReleaseHost(hostID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		host, err := getHost(tx, hostID)
		if err != nil {
			return err
		}
		if !host.Leased {
			return nil
		}
		host.Leased = false
		host.LeasedTo = ""
		host.Status = types.HostStatusReady
		host.UpdatedAt = time.Now()
		return putHost(tx, host)
	})
}

func (s *BoltStore) SetHostStatus(hostID string, status types.HostStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		host, err := getHost(tx, hostID)
		if err != nil {
			return err
		}
		host.Status = status
		host.UpdatedAt = time.Now()
		return putHost(tx, host)
	})
}

// Job operations
func (s *BoltStore) CreateJob(job *types.Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return b.Put([]byte(job.ID), data)
	})
}

func (s *BoltStore) GetJob(id string) (*types.Job, error) {
	var job types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobs fetches a batch of jobs in one transaction. Missing ids are
// simply absent from the result, not an error.
func (s *BoltStore) GetJobs(ids []string) (map[string]*types.Job, error) {
	jobs := make(map[string]*types.Job, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		for _, id := range ids {
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}
			var job types.Job
			if err := json.Unmarshal(data, &job); err != nil {
				return err
			}
			jobs[id] = &job
		}
		return nil
	})
	return jobs, err
}

func (s *BoltStore) ListJobs() ([]*types.Job, error) {
	var jobs []*types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.ForEach(func(k, v []byte) error {
			var job types.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			jobs = append(jobs, &job)
			return nil
		})
	})
	return jobs, err
}

func (s *BoltStore) DeleteJob(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.Delete([]byte(id))
	})
}

// Queue entry operations
func (s *BoltStore) CreateEntry(entry *types.HostQueueEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putEntry(tx, entry)
	})
}

func putEntry(tx *bolt.Tx, entry *types.HostQueueEntry) error {
	b := tx.Bucket(bucketEntries)
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.Put([]byte(entry.ID), data)
}

func getEntry(tx *bolt.Tx, id string) (*types.HostQueueEntry, error) {
	b := tx.Bucket(bucketEntries)
	data := b.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("queue entry %s: %w", id, ErrNotFound)
	}
	var entry types.HostQueueEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BoltStore) GetEntry(id string) (*types.HostQueueEntry, error) {
	var entry *types.HostQueueEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		entry, err = getEntry(tx, id)
		return err
	})
	return entry, err
}

func (s *BoltStore) ListEntries() ([]*types.HostQueueEntry, error) {
	var entries []*types.HostQueueEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return b.ForEach(func(k, v []byte) error {
			var entry types.HostQueueEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	return entries, err
}

func (s *BoltStore) ListEntriesByJob(jobID string) ([]*types.HostQueueEntry, error) {
	entries, err := s.ListEntries()
	if err != nil {
		return nil, err
	}

	var filtered []*types.HostQueueEntry
	for _, entry := range entries {
		if entry.JobID == jobID {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// ListPendingEntries returns queue entries still waiting for a host
func (s *BoltStore) ListPendingEntries() ([]*types.HostQueueEntry, error) {
	entries, err := s.ListEntries()
	if err != nil {
		return nil, err
	}

	var pending []*types.HostQueueEntry
	for _, entry := range entries {
		if entry.Status == types.EntryStatusQueued {
			pending = append(pending, entry)
		}
	}
	return pending, nil
}

func (s *BoltStore) UpdateEntry(entry *types.HostQueueEntry) error {
	return s.CreateEntry(entry)
}

// AssignEntry binds a queue entry to its leased host. This is the
// set_host half of the lease commit.
func (s *BoltStore) AssignEntry(entryID, hostID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entry, err := getEntry(tx, entryID)
		if err != nil {
			return err
		}
		entry.HostID = hostID
		entry.Status = types.EntryStatusAssigned
		entry.AssignedAt = time.Now()
		return putEntry(tx, entry)
	})
}

// AddIneligibleHost records a host as permanently excluded for the
// entry. Adding the same host twice is a no-op.
func (s *BoltStore) AddIneligibleHost(entryID, hostID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entry, err := getEntry(tx, entryID)
		if err != nil {
			return err
		}
		if entry.IsIneligible(hostID) {
			return nil
		}
		entry.IneligibleHosts = append(entry.IneligibleHosts, hostID)
		return putEntry(tx, entry)
	})
}

func (s *BoltStore) DeleteEntry(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return b.Delete([]byte(id))
	})
}

// ACL group operations
func (s *BoltStore) CreateACLGroup(group *types.ACLGroup) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketACLs)
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		return b.Put([]byte(group.Name), data)
	})
}

func (s *BoltStore) GetACLGroup(name string) (*types.ACLGroup, error) {
	var group types.ACLGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketACLs)
		data := b.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("acl group %s: %w", name, ErrNotFound)
		}
		return json.Unmarshal(data, &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *BoltStore) ListACLGroups() ([]*types.ACLGroup, error) {
	var groups []*types.ACLGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketACLs)
		return b.ForEach(func(k, v []byte) error {
			var group types.ACLGroup
			if err := json.Unmarshal(v, &group); err != nil {
				return err
			}
			groups = append(groups, &group)
			return nil
		})
	})
	return groups, err
}

func (s *BoltStore) UpdateACLGroup(group *types.ACLGroup) error {
	return s.CreateACLGroup(group)
}

func (s *BoltStore) DeleteACLGroup(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketACLs)
		return b.Delete([]byte(name))
	})
}

// Batched scheduler queries

// GetHostLabels returns the label list for each requested host in a
// single transaction. Unknown hosts are absent from the result.
func (s *BoltStore) GetHostLabels(hostIDs []string) (map[string][]string, error) {
	labels := make(map[string][]string, len(hostIDs))
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range hostIDs {
			host, err := getHost(tx, id)
			if err != nil {
				continue
			}
			labels[id] = host.Labels
		}
		return nil
	})
	return labels, err
}

// GetJobACLGroups returns the ACL group names for each requested job
func (s *BoltStore) GetJobACLGroups(jobIDs []string) (map[string][]string, error) {
	jobs, err := s.GetJobs(jobIDs)
	if err != nil {
		return nil, err
	}
	acls := make(map[string][]string, len(jobs))
	for id, job := range jobs {
		acls[id] = job.ACLGroups
	}
	return acls, nil
}

// GetJobDependencies returns the dependency label names for each
// requested job
func (s *BoltStore) GetJobDependencies(jobIDs []string) (map[string][]string, error) {
	jobs, err := s.GetJobs(jobIDs)
	if err != nil {
		return nil, err
	}
	deps := make(map[string][]string, len(jobs))
	for id, job := range jobs {
		deps[id] = job.Dependencies
	}
	return deps, nil
}
