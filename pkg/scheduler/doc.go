/*
Package scheduler implements host/job matching for the Hutch test lab.

The scheduler leases physical lab hosts to pending host queue entries (HQEs),
honoring label dependencies, ACL group membership, operator locks, and job
priority, while guaranteeing that no host is ever leased to two entries at
once. It runs as a sequence of discrete passes over snapshots of lab state;
there is no concurrency inside a pass.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                    Scheduler Loop                           │
	│                  (every tick, default 5s)                   │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. Fetch pending queue entries (batch)                     │
	│  2. Build Index: label→hosts, job deps, job ACLs            │
	│  3. Sort entries by job priority (desc), arrival order      │
	│  4. For each entry:                                         │
	│     • direct: validate the pre-assigned host                │
	│     • meta-host: first eligible candidate in index order    │
	│     • lease commit → dispatch, or defer to next pass        │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	    ┌────────────┴────────────┐
	    │                         │
	    ▼                         ▼
	┌─────────────┐       ┌──────────────┐
	│   Leased    │       │   Deferred   │
	│  dispatch   │       │  stay queued │
	│  (hqe,host) │       │  retry next  │
	└─────────────┘       └──────────────┘

# Core Components

Index: the read-side cache built once per pass. Maps each label to the hosts
carrying it (ascending host id, so candidate iteration is deterministic), and
each job to its dependency and ACL sets. Pure data; rebuilt from the store
every tick and discarded afterwards.

EligibilityFilter: the four-gate predicate deciding whether one host may serve
one entry: host usable (unlocked + ready), host not in the entry's sticky
ineligible list, ACL intersection, and dependency labels all carried.
Provisioning pseudo-labels (cros-version and friends) are excluded from the
dependency check because installing them is the dispatcher's job.

Pass: the stateful allocator for one tick. It owns the shrinking pool of
available hosts; leasing pops the host from the pool so no later entry in the
same pass can take it. A fresh Pass per tick means no hidden cross-tick state.

Scheduler: the tick driver. Start begins the loop; RunPass executes one pass
synchronously (tests drive it directly).

	sched := scheduler.New(store, dispatcher, broker, scheduler.DefaultConfig())
	sched.Start()
	defer sched.Stop()

# Correctness Model

Within a pass, processing strictly in priority order is what prevents a
low-priority job from taking the last eligible host ahead of a high-priority
one. Across processes, the in-memory pool is only an optimization: the durable
lock against double-booking is the host's leased flag in the store, checked
and set inside one storage transaction at lease-commit time. A host found
taken at commit (a race with another scheduler instance) is a benign
eligibility failure: the pass pops the host and keeps walking candidates.

Deferral is not an error. An entry with no eligible host this pass stays
queued and is retried on the next tick by the loop, not by retry logic inside
the allocator.
*/
package scheduler
