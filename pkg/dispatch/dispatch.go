package dispatch

import (
	"context"

	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/rs/zerolog"
)

// Dispatcher turns a leased (queue entry, host) pairing into a launched
// job run. The scheduler core calls Dispatch once per successful lease;
// everything past that point (runner process, results collection) lives
// outside the scheduling engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry *types.HostQueueEntry, host *types.Host) error
}

// LogDispatcher records each pairing in the log and does nothing else.
// Used when hutch runs without a job runner attached.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a dispatcher that only logs pairings
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logger: log.WithComponent("dispatch")}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, entry *types.HostQueueEntry, host *types.Host) error {
	d.logger.Info().
		Str("entry_id", entry.ID).
		Str("job_id", entry.JobID).
		Str("host_id", host.ID).
		Str("hostname", host.Hostname).
		Msg("dispatching job to host")
	return nil
}

// ChanDispatcher delivers pairings on a channel. It backs tests and
// embedders that drive their own runner loop.
type ChanDispatcher struct {
	C chan types.Assignment
}

// NewChanDispatcher creates a channel-backed dispatcher with the given
// buffer size
func NewChanDispatcher(buffer int) *ChanDispatcher {
	return &ChanDispatcher{C: make(chan types.Assignment, buffer)}
}

func (d *ChanDispatcher) Dispatch(ctx context.Context, entry *types.HostQueueEntry, host *types.Host) error {
	select {
	case d.C <- types.Assignment{EntryID: entry.ID, JobID: entry.JobID, HostID: host.ID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
