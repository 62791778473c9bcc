package scheduler

import (
	"github.com/cuemby/hutch/pkg/types"
)

// EligibilityFilter decides whether a specific host may be leased to a
// specific queue entry right now. It is a pure predicate over the
// per-pass index snapshot; it never errors and callers skip hosts that
// fail.
type EligibilityFilter struct {
	index           *Index
	usableStatuses  map[types.HostStatus]struct{}
	provisionLabels map[string]struct{}
}

// NewEligibilityFilter creates a filter over the given index using the
// scheduler configuration's usable statuses and provisioning label
// prefixes
func NewEligibilityFilter(index *Index, cfg Config) *EligibilityFilter {
	usable := make(map[types.HostStatus]struct{}, len(cfg.UsableStatuses))
	for _, s := range cfg.UsableStatuses {
		usable[s] = struct{}{}
	}
	provision := make(map[string]struct{}, len(cfg.ProvisionLabels))
	for _, p := range cfg.ProvisionLabels {
		provision[p] = struct{}{}
	}
	return &EligibilityFilter{
		index:           index,
		usableStatuses:  usable,
		provisionLabels: provision,
	}
}

// IsEligible reports whether the host may be leased to the entry. All
// four gates must pass: the host is usable, not already rejected for
// this entry, reachable through the job's ACL groups, and carries every
// dependency label.
func (f *EligibilityFilter) IsEligible(host *types.Host, entry *types.HostQueueEntry) bool {
	if !f.HostUsable(host) {
		return false
	}
	if entry.IsIneligible(host.ID) {
		return false
	}
	if !f.aclAllows(host, entry) {
		return false
	}
	return f.dependenciesSatisfied(host, entry)
}

// HostUsable reports whether the host is unlocked and in a status jobs
// may run on
func (f *EligibilityFilter) HostUsable(host *types.Host) bool {
	if host.Locked {
		return false
	}
	_, ok := f.usableStatuses[host.Status]
	return ok
}

// aclAllows checks that at least one of the job's ACL groups contains
// the host. A job carrying no ACL groups is unrestricted.
func (f *EligibilityFilter) aclAllows(host *types.Host, entry *types.HostQueueEntry) bool {
	jobGroups := f.index.ACLGroupsFor(entry.JobID)
	if len(jobGroups) == 0 {
		return true
	}
	hostGroups := f.index.HostACLs[host.ID]
	for group := range jobGroups {
		if _, ok := hostGroups[group]; ok {
			return true
		}
	}
	return false
}

// dependenciesSatisfied checks that the host carries every dependency
// label of the entry's job. Provisioning pseudo-labels (cros-version
// and friends) name work the dispatch side performs before the run, so
// they are excluded from the check.
func (f *EligibilityFilter) dependenciesSatisfied(host *types.Host, entry *types.HostQueueEntry) bool {
	for dep := range f.index.DependenciesFor(entry.JobID) {
		if f.isProvisionLabel(dep) {
			continue
		}
		if !host.HasLabel(dep) {
			return false
		}
	}
	return true
}

func (f *EligibilityFilter) isProvisionLabel(label string) bool {
	_, ok := f.provisionLabels[types.Label(label).Base()]
	return ok
}
