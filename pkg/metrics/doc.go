/*
Package metrics provides Prometheus metrics and component health tracking for
Hutch.

Metrics are package-level collectors registered at init and exported on the
daemon's HTTP listener at /metrics. A background Collector samples inventory
gauges (hosts by status, locked/leased counts, pending entries) from the
store every 15 seconds; the scheduler and reconciler record their own
counters and latency histograms inline.

# Metric Groups

	Inventory:
	  hutch_hosts_total{status}        hosts by lifecycle status
	  hutch_hosts_locked               operator-locked hosts
	  hutch_hosts_leased               hosts leased to queue entries
	  hutch_jobs_total                 jobs in the store
	  hutch_entries_pending            queue entries waiting for a host

	Scheduler:
	  hutch_scheduler_passes_total
	  hutch_scheduler_pass_duration_seconds
	  hutch_entries_scheduled_total
	  hutch_entries_deferred_total
	  hutch_lease_conflicts_total      lost lease races with another scheduler

	Reconciler:
	  hutch_reconcile_cycles_total
	  hutch_reconcile_duration_seconds
	  hutch_orphaned_leases_released_total
	  hutch_overlapping_assignments_total

# Health Checking

Components register their health with RegisterComponent/UpdateComponent; the
aggregate is served via HealthHandler. A single unhealthy component makes the
whole status unhealthy:

	metrics.RegisterComponent("storage", true, "")
	metrics.UpdateComponent("scheduler", false, "pass aborted: store unreachable")

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PassDuration)
*/
package metrics
