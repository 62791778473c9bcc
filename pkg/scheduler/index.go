package scheduler

import (
	"sort"
	"strings"

	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
)

// Index is the read-side cache built once per scheduling pass: label to
// host mappings, per-job dependency and ACL sets, and a snapshot of
// every host and job the pass may touch. It is never mutated after
// BuildIndex returns; the pass layers its shrinking availability pool
// on top.
type Index struct {
	// LabelHosts maps each label name to the host IDs carrying it,
	// in ascending host-id order. The ordering makes candidate
	// iteration deterministic across passes over the same snapshot.
	LabelHosts map[string][]string

	// JobDeps maps job id to its dependency label set
	JobDeps map[string]map[string]struct{}

	// JobACLs maps job id to its ACL group name set
	JobACLs map[string]map[string]struct{}

	// HostACLs maps host id to the set of ACL groups it belongs to
	HostACLs map[string]map[string]struct{}

	// Hosts and Jobs are the pass snapshot, keyed by id
	Hosts map[string]*types.Host
	Jobs  map[string]*types.Job
}

// BuildIndex constructs the per-pass index for a batch of pending queue
// entries using batched store queries. An empty batch yields an empty
// index; labels no host carries are simply absent.
func BuildIndex(store storage.Store, entries []*types.HostQueueEntry) (*Index, error) {
	idx := &Index{
		LabelHosts: make(map[string][]string),
		JobDeps:    make(map[string]map[string]struct{}),
		JobACLs:    make(map[string]map[string]struct{}),
		HostACLs:   make(map[string]map[string]struct{}),
		Hosts:      make(map[string]*types.Host),
		Jobs:       make(map[string]*types.Job),
	}
	if len(entries) == 0 {
		return idx, nil
	}

	jobIDs := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.JobID]; ok {
			continue
		}
		seen[entry.JobID] = struct{}{}
		jobIDs = append(jobIDs, entry.JobID)
	}

	jobs, err := store.GetJobs(jobIDs)
	if err != nil {
		return nil, err
	}
	idx.Jobs = jobs

	deps, err := store.GetJobDependencies(jobIDs)
	if err != nil {
		return nil, err
	}
	for jobID, labels := range deps {
		idx.JobDeps[jobID] = toSet(labels)
	}

	acls, err := store.GetJobACLGroups(jobIDs)
	if err != nil {
		return nil, err
	}
	for jobID, groups := range acls {
		idx.JobACLs[jobID] = toSet(groups)
	}

	hosts, err := store.ListHosts()
	if err != nil {
		return nil, err
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
	hostIDs := make([]string, 0, len(hosts))
	for _, host := range hosts {
		idx.Hosts[host.ID] = host
		hostIDs = append(hostIDs, host.ID)
	}

	labels, err := store.GetHostLabels(hostIDs)
	if err != nil {
		return nil, err
	}
	for _, hostID := range hostIDs {
		for _, label := range labels[hostID] {
			idx.LabelHosts[label] = append(idx.LabelHosts[label], hostID)
		}
	}

	groups, err := store.ListACLGroups()
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		for _, hostID := range group.Hosts {
			if idx.HostACLs[hostID] == nil {
				idx.HostACLs[hostID] = make(map[string]struct{})
			}
			idx.HostACLs[hostID][group.Name] = struct{}{}
		}
	}

	return idx, nil
}

// ParseLabelExpression splits a "+"-joined label expression into its
// label names. Empty segments are dropped; an empty or all-whitespace
// expression yields nil.
func ParseLabelExpression(expr string) []string {
	var labels []string
	for _, part := range strings.Split(expr, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		labels = append(labels, part)
	}
	return labels
}

// HostsForLabelExpression resolves a label expression to the hosts
// carrying every listed label, preserving index order. If any label in
// the expression maps to no hosts, the result is empty: conjunctive
// semantics. A malformed or empty expression also yields no hosts,
// never an error.
func (idx *Index) HostsForLabelExpression(expr string) []string {
	labels := ParseLabelExpression(expr)
	if len(labels) == 0 {
		return nil
	}

	candidates := idx.LabelHosts[labels[0]]
	if len(candidates) == 0 {
		return nil
	}

	result := make([]string, 0, len(candidates))
	for _, hostID := range candidates {
		host := idx.Hosts[hostID]
		if host == nil {
			continue
		}
		carriesAll := true
		for _, label := range labels[1:] {
			if !host.HasLabel(label) {
				carriesAll = false
				break
			}
		}
		if carriesAll {
			result = append(result, hostID)
		}
	}
	return result
}

// DependenciesFor returns the job's dependency label set, or nil for an
// unknown job
func (idx *Index) DependenciesFor(jobID string) map[string]struct{} {
	return idx.JobDeps[jobID]
}

// ACLGroupsFor returns the job's ACL group name set, or nil for an
// unknown job
func (idx *Index) ACLGroupsFor(jobID string) map[string]struct{} {
	return idx.JobACLs[jobID]
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
