package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/rs/zerolog"
)

// Pass is the stateful allocator for one scheduling tick. It owns a
// working set of currently-available hosts derived from the index and
// shrinks it monotonically as hosts are leased; a fresh Pass is built
// every tick, so no scheduling state leaks between ticks.
type Pass struct {
	store  storage.Store
	index  *Index
	filter *EligibilityFilter
	logger zerolog.Logger

	// available tracks hosts not yet leased in this pass. Hosts
	// already leased or holding work at snapshot time never enter it.
	available map[string]struct{}

	assignments []types.Assignment
}

// NewPass creates the allocator for one tick over the given index
// snapshot
func NewPass(store storage.Store, index *Index, filter *EligibilityFilter, logger zerolog.Logger) *Pass {
	available := make(map[string]struct{}, len(index.Hosts))
	for id, host := range index.Hosts {
		if host.Leased {
			continue
		}
		available[id] = struct{}{}
	}
	return &Pass{
		store:     store,
		index:     index,
		filter:    filter,
		logger:    logger,
		available: available,
	}
}

// Assignments returns the pairings leased so far in this pass
func (p *Pass) Assignments() []types.Assignment {
	return p.assignments
}

// ScheduleEntry finds and leases a host for the entry. It returns the
// assignment on success and nil when no eligible host exists this pass;
// the latter is a normal outcome, not an error. Errors are reserved for
// storage failures.
func (p *Pass) ScheduleEntry(entry *types.HostQueueEntry) (*types.Assignment, error) {
	if entry.HostID != "" {
		return p.scheduleDirect(entry)
	}
	if entry.MetaHost != "" {
		return p.scheduleMetaHost(entry)
	}
	// Hostless entry: nothing for the allocator to do
	return nil, nil
}

// scheduleDirect handles an entry whose host was fixed at submission
// time. The assignment is still validated: a pre-assigned host that is
// locked, leased, or missing a dependency defers the entry like any
// other.
func (p *Pass) scheduleDirect(entry *types.HostQueueEntry) (*types.Assignment, error) {
	host, ok := p.index.Hosts[entry.HostID]
	if !ok {
		p.logger.Warn().
			Str("entry_id", entry.ID).
			Str("host_id", entry.HostID).
			Msg("pre-assigned host not in inventory")
		return nil, nil
	}
	if _, ok := p.available[host.ID]; !ok {
		return nil, nil
	}
	if !p.filter.IsEligible(host, entry) {
		return nil, nil
	}
	assignment, err := p.lease(host, entry)
	if errors.Is(err, storage.ErrHostUnavailable) {
		// Another scheduler took the host; the entry waits for it
		// to free up or for an operator to reassign.
		return nil, nil
	}
	return assignment, err
}

// scheduleMetaHost resolves the entry's label expression and leases the
// first eligible candidate in index order. No scoring: first eligible
// wins, which keeps repeated passes over the same snapshot reproducible.
func (p *Pass) scheduleMetaHost(entry *types.HostQueueEntry) (*types.Assignment, error) {
	candidates := p.index.HostsForLabelExpression(entry.MetaHost)
	for _, hostID := range candidates {
		if _, ok := p.available[hostID]; !ok {
			continue
		}
		host := p.index.Hosts[hostID]
		if !p.filter.IsEligible(host, entry) {
			continue
		}

		assignment, err := p.lease(host, entry)
		if err != nil {
			if errors.Is(err, storage.ErrHostUnavailable) {
				// Lost the race to another scheduler process.
				// The host is gone; keep walking candidates.
				continue
			}
			return nil, err
		}
		return assignment, nil
	}
	return nil, nil
}

// lease commits the pairing: durable host lease first, then the entry
// assignment, then the in-memory pool update. On ErrHostUnavailable the
// host is popped from the pool so no later entry retries it this pass.
func (p *Pass) lease(host *types.Host, entry *types.HostQueueEntry) (*types.Assignment, error) {
	if _, err := p.store.LeaseHost(host.ID, entry.ID); err != nil {
		if errors.Is(err, storage.ErrHostUnavailable) {
			metrics.LeaseConflicts.Inc()
			p.logger.Info().
				Str("host_id", host.ID).
				Str("entry_id", entry.ID).
				Msg("host taken at lease commit, excluding for this pass")
			p.PopHost(host.ID)
		}
		return nil, err
	}

	if err := p.store.AssignEntry(entry.ID, host.ID); err != nil {
		// The lease went through but the entry write failed; undo
		// the lease so the host is not stranded.
		if releaseErr := p.store.ReleaseHost(host.ID); releaseErr != nil {
			p.logger.Error().Err(releaseErr).
				Str("host_id", host.ID).
				Msg("failed to release host after assignment failure")
		}
		return nil, fmt.Errorf("failed to assign entry %s: %w", entry.ID, err)
	}

	entry.HostID = host.ID
	entry.Status = types.EntryStatusAssigned
	p.PopHost(host.ID)

	assignment := types.Assignment{
		EntryID: entry.ID,
		JobID:   entry.JobID,
		HostID:  host.ID,
	}
	p.assignments = append(p.assignments, assignment)

	p.logger.Info().
		Str("entry_id", entry.ID).
		Str("job_id", entry.JobID).
		Str("host_id", host.ID).
		Str("hostname", host.Hostname).
		Msg("host leased")
	return &assignment, nil
}

// PopHost removes a host from the pass's available pool. Idempotent:
// popping an already-popped host has no effect.
func (p *Pass) PopHost(hostID string) {
	delete(p.available, hostID)
}

// SortEntries orders a batch for processing: descending job priority,
// ties broken by entry creation time, then entry id. Higher-priority
// jobs therefore get first pick of eligible hosts within a pass.
func SortEntries(entries []*types.HostQueueEntry, jobs map[string]*types.Job) {
	priority := func(e *types.HostQueueEntry) int {
		if job, ok := jobs[e.JobID]; ok {
			return job.Priority
		}
		return 0
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := priority(entries[i]), priority(entries[j])
		if pi != pj {
			return pi > pj
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
