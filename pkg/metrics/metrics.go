package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Inventory metrics
	HostsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hutch_hosts_total",
			Help: "Total number of hosts by status",
		},
		[]string{"status"},
	)

	HostsLocked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hutch_hosts_locked",
			Help: "Number of hosts currently locked by operators",
		},
	)

	HostsLeased = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hutch_hosts_leased",
			Help: "Number of hosts currently leased to queue entries",
		},
	)

	JobsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hutch_jobs_total",
			Help: "Total number of jobs",
		},
	)

	EntriesPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hutch_entries_pending",
			Help: "Number of queue entries waiting for a host",
		},
	)

	// Scheduler metrics
	PassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_scheduler_passes_total",
			Help: "Total number of scheduling passes run",
		},
	)

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hutch_scheduler_pass_duration_seconds",
			Help:    "Time taken by one scheduling pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EntriesScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_entries_scheduled_total",
			Help: "Total number of queue entries leased a host",
		},
	)

	EntriesDeferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_entries_deferred_total",
			Help: "Total number of entries left unresolved for a pass",
		},
	)

	LeaseConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_lease_conflicts_total",
			Help: "Hosts found taken at lease-commit time by a concurrent scheduler",
		},
	)

	// Reconciler metrics
	ReconcileCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_reconcile_cycles_total",
			Help: "Total number of reconciliation cycles run",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hutch_reconcile_duration_seconds",
			Help:    "Time taken by one reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	OrphanedLeasesReleased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_orphaned_leases_released_total",
			Help: "Leases released because their queue entry had finished or vanished",
		},
	)

	OverlappingAssignments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_overlapping_assignments_total",
			Help: "Hosts found assigned to more than one active queue entry",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(HostsTotal)
	prometheus.MustRegister(HostsLocked)
	prometheus.MustRegister(HostsLeased)
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(EntriesPending)
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(EntriesScheduled)
	prometheus.MustRegister(EntriesDeferred)
	prometheus.MustRegister(LeaseConflicts)
	prometheus.MustRegister(ReconcileCyclesTotal)
	prometheus.MustRegister(ReconcileDuration)
	prometheus.MustRegister(OrphanedLeasesReleased)
	prometheus.MustRegister(OverlappingAssignments)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
