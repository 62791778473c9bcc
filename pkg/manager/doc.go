/*
Package manager provides the entity-store facade for Hutch.

The Manager owns the storage handle and the event broker, and exposes every
mutation the surrounding lab tooling performs: host inventory changes
(add/remove/lock/unlock), job submission with queue-entry fan-out, queue
entry lifecycle transitions (running/completed/aborted/failed), and ACL group
management. Each mutation publishes an event so watchers see lab state
changes as they happen.

The scheduler does not go through the Manager's mutation surface; it consumes
the Store directly for its batched read queries and the lease commit. The
split keeps the scheduling core free of inventory policy (for example,
"leased hosts cannot be removed"), which lives here.

# Job Fan-out

SubmitJob turns one JobSpec into one Job record plus one HostQueueEntry per
requested host:

	job, err := mgr.SubmitJob(manager.JobSpec{
		Name:         "platform_SuspendResume",
		Owner:        "lab-tools",
		Priority:     40,
		Dependencies: []string{"board_kukui"},
		MetaHosts:    []string{"board_kukui+pool_suites"},
	})

Concrete hostnames become direct entries (HostID fixed at submission);
label expressions become meta-host entries resolved at scheduling time.

# Failure Requeue

FailEntry implements the retry contract: the lease is released, the failed
host joins the entry's sticky ineligible list, and the entry returns to the
queue to resolve a different host next pass. A direct entry is pinned to
its one host, so its failure is terminal: the entry aborts rather than
requeue against a host it may never use again.
*/
package manager
