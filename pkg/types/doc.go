/*
Package types defines the core data structures shared across all Hutch components.

This package contains the lab data model: hosts (physical test machines),
labels (capability/board/build tags), jobs (submitted test work), host queue
entries (the unit of scheduling), and ACL groups (host access control). It has
no dependencies on other Hutch packages, making it safe to import from anywhere
in the codebase.

# Entity Relationships

	┌─────────────────────────────────────────────────────────┐
	│                          Job                             │
	│  Priority, Owner, ACL groups, dependency labels          │
	└──────────────────────┬──────────────────────────────────┘
	                       │ 1:N (fan-out at submission)
	                       ▼
	┌─────────────────────────────────────────────────────────┐
	│                   HostQueueEntry                         │
	│  Concrete HostID  OR  MetaHost label expression          │
	│  Sticky ineligible-host list                             │
	└──────────────────────┬──────────────────────────────────┘
	                       │ leased to at most one
	                       ▼
	┌─────────────────────────────────────────────────────────┐
	│                         Host                             │
	│  Status, Locked, Leased/LeasedTo, Labels                 │
	└──────────────────────┬──────────────────────────────────┘
	                       │ N:M
	                       ▼
	┌─────────────────────────────────────────────────────────┐
	│                    Labels / ACLGroups                    │
	└─────────────────────────────────────────────────────────┘

# Host Lifecycle

Hosts are created by lab inventory tooling and transition between statuses as
verify/repair processes and the scheduler act on them:

	ready ──lease──► pending ──dispatch──► running ──release──► ready
	  │
	  ├──► verifying / repairing / cleaning / provisioning (external tooling)
	  └──► repair_failed (terminal until repaired)

The scheduler only ever moves a host ready→pending (at lease commit) and back
to ready (at release). All other transitions belong to external lab processes.

# Queue Entry Lifecycle

	queued ──lease──► assigned ──► running ──► completed
	  ▲                                  │
	  └──────── requeue on failure ◄─────┘  (failed host recorded as ineligible)

An entry that finds no eligible host in a pass simply stays queued; deferral
is a normal outcome, not an error.

# Label Expressions

A meta-host entry names its host pool with a "+"-joined conjunction of labels:

	board_kukui+has_servo+pool_suites

meaning the host must carry every listed label. Versioned labels use a
":value" suffix (cros-version:R80-12739.0.0); Label.Base strips the suffix.
*/
package types
