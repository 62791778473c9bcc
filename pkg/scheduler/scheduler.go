package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/hutch/pkg/dispatch"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Config holds scheduler configuration. A Config is immutable once the
// scheduler is constructed; there are no process-wide knobs.
type Config struct {
	// TickInterval is the delay between scheduling passes
	TickInterval time.Duration

	// UsableStatuses lists host statuses jobs may be leased onto
	UsableStatuses []types.HostStatus

	// ProvisionLabels lists base names of versioned labels that name
	// provisioning work rather than host capabilities; they are
	// skipped during dependency checks
	ProvisionLabels []string
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		TickInterval:   5 * time.Second,
		UsableStatuses: []types.HostStatus{types.HostStatusReady},
		ProvisionLabels: []string{
			"cros-version",
			"fwro-version",
			"fwrw-version",
		},
	}
}

// Scheduler matches pending queue entries against the host pool once
// per tick. Each tick rebuilds its view of the world from the store, so
// the scheduler holds no durable state of its own and tolerates process
// restarts: a crash mid-pass loses only uncommitted leases.
type Scheduler struct {
	store      storage.Store
	dispatcher dispatch.Dispatcher
	broker     *events.Broker
	cfg        Config
	logger     zerolog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler. The broker may be nil when no one listens
// for events.
func New(store storage.Store, dispatcher dispatch.Dispatcher, broker *events.Broker, cfg Config) *Scheduler {
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		broker:     broker,
		cfg:        cfg,
		logger:     log.WithComponent("scheduler"),
		stopCh:     make(chan struct{}),
	}
}

// Start begins the scheduling loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// run drives the tick loop. A failed pass is logged and retried
// wholesale on the next tick; per-lease commits mean an aborted pass
// simply leased fewer entries than it could have.
func (s *Scheduler) run() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunPass(context.Background()); err != nil {
				s.logger.Error().Err(err).Msg("scheduling pass failed")
				metrics.UpdateComponent("scheduler", false, err.Error())
			} else {
				metrics.UpdateComponent("scheduler", true, "")
			}
		case <-s.stopCh:
			return
		}
	}
}

// RunPass executes one scheduling pass over the current batch of
// pending entries and returns the assignments made. Entries that find
// no eligible host stay queued for the next pass. Per-entry failures
// are aggregated and do not stop the pass; only a failed batch fetch or
// index build aborts it.
func (s *Scheduler) RunPass(ctx context.Context) ([]types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.PassDuration)
		metrics.PassesTotal.Inc()
	}()

	entries, err := s.store.ListPendingEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	index, err := BuildIndex(s.store, entries)
	if err != nil {
		return nil, err
	}

	SortEntries(entries, index.Jobs)
	filter := NewEligibilityFilter(index, s.cfg)
	pass := NewPass(s.store, index, filter, s.logger)

	var result *multierror.Error
	for _, entry := range entries {
		assignment, err := pass.ScheduleEntry(entry)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if assignment == nil {
			s.deferEntry(entry)
			continue
		}
		s.commitAssignment(ctx, index, entry, assignment, &result)
	}

	s.logger.Debug().
		Int("pending", len(entries)).
		Int("scheduled", len(pass.Assignments())).
		Msg("scheduling pass complete")
	return pass.Assignments(), result.ErrorOrNil()
}

func (s *Scheduler) deferEntry(entry *types.HostQueueEntry) {
	metrics.EntriesDeferred.Inc()
	s.logger.Debug().
		Str("entry_id", entry.ID).
		Str("meta_host", entry.MetaHost).
		Msg("no eligible host this pass")
	s.publish(&events.Event{
		Type:    events.EventEntryDeferred,
		Message: "no eligible host this pass",
		Metadata: map[string]string{
			"entry_id": entry.ID,
			"job_id":   entry.JobID,
		},
	})
}

func (s *Scheduler) commitAssignment(ctx context.Context, index *Index, entry *types.HostQueueEntry, assignment *types.Assignment, result **multierror.Error) {
	metrics.EntriesScheduled.Inc()
	s.publish(&events.Event{
		Type:    events.EventEntryAssigned,
		Message: "host leased to queue entry",
		Metadata: map[string]string{
			"entry_id": assignment.EntryID,
			"job_id":   assignment.JobID,
			"host_id":  assignment.HostID,
		},
	})

	host := index.Hosts[assignment.HostID]
	if err := s.dispatcher.Dispatch(ctx, entry, host); err != nil {
		*result = multierror.Append(*result, err)
	}
}

func (s *Scheduler) publish(event *events.Event) {
	if s.broker != nil {
		s.broker.Publish(event)
	}
}
