/*
Package storage provides persistent state management for the Hutch lab
scheduler using BoltDB.

The storage package implements the entity store: hosts, jobs, host queue
entries, and ACL groups, persisted as JSON in an embedded BoltDB database.
It also carries the two pieces of scheduling machinery that must be durable
rather than in-memory: the host lease commit and the per-entry ineligible
host list.

# Architecture

	┌──────────────────── STORAGE LAYER ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Store Interface                  │           │
	│  │  - CRUD for hosts/jobs/entries/ACL groups   │           │
	│  │  - Batched scheduler queries                │           │
	│  │  - LeaseHost / ReleaseHost                  │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │              BoltStore                      │           │
	│  │  Single-file embedded BoltDB (hutch.db)     │           │
	│  │                                              │           │
	│  │  Buckets:                                    │           │
	│  │    hosts          host records               │           │
	│  │    jobs           job records                │           │
	│  │    queue_entries  HQE records                │           │
	│  │    acl_groups     ACL group records          │           │
	│  └─────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Lease Commit

LeaseHost is the single durable commit point of the scheduler. The
availability check (not leased, not locked, status ready) and the write
marking the host leased happen inside one BoltDB update transaction:

	host, err := store.LeaseHost("h-42", "hqe-7")
	if errors.Is(err, storage.ErrHostUnavailable) {
		// another scheduler process won the race; try the next candidate
	}

Because BoltDB serializes writers, two scheduler processes racing for the
same host cannot both commit. The in-memory availability pool a scheduling
pass maintains is only a same-process optimization over this durable check.

# Batched Queries

The per-pass index build consumes id-keyed batch queries instead of per-row
lookups:

	GetHostLabels(hostIDs)      host id  -> labels
	GetJobACLGroups(jobIDs)     job id   -> ACL group names
	GetJobDependencies(jobIDs)  job id   -> dependency labels

Missing ids are silently absent from the returned maps; callers treat absence
as "no data", matching the scheduler's zero-candidates-not-an-error taxonomy.

# Error Handling

Lookups for missing records wrap ErrNotFound. LeaseHost wraps
ErrHostUnavailable with the reason (leased, locked, or bad status) so callers
can branch with errors.Is while logs keep the detail.
*/
package storage
