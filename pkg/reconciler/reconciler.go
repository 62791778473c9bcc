package reconciler

import (
	"errors"
	"sync"
	"time"

	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/rs/zerolog"
)

// Reconciler repairs drift between host lease state and queue entry
// state: leases whose entry finished or vanished are released, and
// hosts assigned to more than one active entry are reported. The
// scheduler never produces these states on its own, but crashes,
// operator surgery, and older schedulers sharing the store can.
type Reconciler struct {
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger

	interval time.Duration
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewReconciler creates a reconciler sweeping at the given interval
func NewReconciler(store storage.Store, broker *events.Broker, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    store,
		broker:   broker,
		logger:   log.WithComponent("reconciler"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler. Safe to call more than once.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("reconcile cycle failed")
			}
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one sweep
func (r *Reconciler) Reconcile() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconcileDuration)
		metrics.ReconcileCyclesTotal.Inc()
	}()

	if err := r.releaseOrphanedLeases(); err != nil {
		return err
	}
	return r.checkOverlappingAssignments()
}

// releaseOrphanedLeases returns hosts to the pool when the entry
// holding their lease is terminal, missing, or no longer references
// them.
func (r *Reconciler) releaseOrphanedLeases() error {
	hosts, err := r.store.ListHosts()
	if err != nil {
		return err
	}

	for _, host := range hosts {
		if !host.Leased {
			continue
		}
		if !r.leaseOrphaned(host) {
			continue
		}

		r.logger.Warn().
			Str("host_id", host.ID).
			Str("hostname", host.Hostname).
			Str("leased_to", host.LeasedTo).
			Msg("releasing orphaned lease")
		if err := r.store.ReleaseHost(host.ID); err != nil {
			r.logger.Error().Err(err).Str("host_id", host.ID).Msg("failed to release host")
			continue
		}
		metrics.OrphanedLeasesReleased.Inc()
		r.publish(events.EventHostReleased, "orphaned lease released", map[string]string{
			"host_id":  host.ID,
			"hostname": host.Hostname,
		})
	}
	return nil
}

func (r *Reconciler) leaseOrphaned(host *types.Host) bool {
	if host.LeasedTo == "" {
		return true
	}
	entry, err := r.store.GetEntry(host.LeasedTo)
	if errors.Is(err, storage.ErrNotFound) {
		return true
	}
	if err != nil {
		return false
	}
	if entry.Status.Terminal() {
		return true
	}
	// An active entry pointing at a different host abandoned this one
	return entry.Status.Active() && entry.HostID != host.ID
}

// checkOverlappingAssignments reports hosts referenced by more than one
// active queue entry. It never auto-resolves: which entry keeps the
// host is an operator decision.
func (r *Reconciler) checkOverlappingAssignments() error {
	entries, err := r.store.ListEntries()
	if err != nil {
		return err
	}

	byHost := make(map[string][]*types.HostQueueEntry)
	for _, entry := range entries {
		if entry.HostID != "" && entry.Status.Active() {
			byHost[entry.HostID] = append(byHost[entry.HostID], entry)
		}
	}

	for hostID, overlapping := range byHost {
		if len(overlapping) < 2 {
			continue
		}
		metrics.OverlappingAssignments.Inc()
		ids := make([]string, len(overlapping))
		for i, entry := range overlapping {
			ids[i] = entry.ID
		}
		r.logger.Error().
			Str("host_id", hostID).
			Strs("entry_ids", ids).
			Msg("host assigned to multiple active entries")
	}
	return nil
}

func (r *Reconciler) publish(eventType events.EventType, message string, metadata map[string]string) {
	if r.broker != nil {
		r.broker.Publish(&events.Event{
			Type:     eventType,
			Message:  message,
			Metadata: metadata,
		})
	}
}
