package metrics

import (
	"time"

	"github.com/cuemby/hutch/pkg/storage"
	"github.com/cuemby/hutch/pkg/types"
)

// Collector samples lab state from the store into Prometheus gauges
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectHostMetrics()
	c.collectJobMetrics()
	c.collectEntryMetrics()
}

func (c *Collector) collectHostMetrics() {
	hosts, err := c.store.ListHosts()
	if err != nil {
		return
	}

	statusCounts := make(map[types.HostStatus]int)
	locked := 0
	leased := 0

	for _, host := range hosts {
		statusCounts[host.Status]++
		if host.Locked {
			locked++
		}
		if host.Leased {
			leased++
		}
	}

	HostsTotal.Reset()
	for status, count := range statusCounts {
		HostsTotal.WithLabelValues(string(status)).Set(float64(count))
	}
	HostsLocked.Set(float64(locked))
	HostsLeased.Set(float64(leased))
}

func (c *Collector) collectJobMetrics() {
	jobs, err := c.store.ListJobs()
	if err != nil {
		return
	}

	JobsTotal.Set(float64(len(jobs)))
}

func (c *Collector) collectEntryMetrics() {
	pending, err := c.store.ListPendingEntries()
	if err != nil {
		return
	}

	EntriesPending.Set(float64(len(pending)))
}
