/*
Package reconciler repairs drift between host leases and queue entry state.

The scheduler's lease commit keeps host and entry records consistent while
everything behaves. Crashes between the lease write and the entry write,
operators editing records by hand, and multiple scheduler generations sharing
one store all leak inconsistency the scheduling pass itself will never fix:
a host can stay leased forever to an entry that finished, and a host can end
up referenced by two active entries.

The reconciler sweeps on its own interval (default 30s, independent of the
scheduler tick) and performs two checks:

  - Orphaned leases: a leased host whose entry is terminal, missing, or
    pointing elsewhere is released back to the ready pool.

  - Overlapping assignments: a host referenced by more than one active entry
    is reported via log and metric. The reconciler never picks a winner;
    resolving a double assignment is an operator decision.

Both checks are read-mostly and idempotent, so running the reconciler beside
an active scheduler is safe.
*/
package reconciler
