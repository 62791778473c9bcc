/*
Package events provides an in-memory event broker for Hutch's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting lab
state changes to interested subscribers: CLI watchers, the metrics collector,
and log shippers. Publishing is non-blocking; slow subscribers drop events
rather than stalling the scheduler.

# Event Types

	Host Events:
	  host.added / host.removed
	  host.locked / host.unlocked
	  host.leased / host.released

	Scheduling Events:
	  job.created
	  entry.assigned    a queue entry was leased a host
	  entry.deferred    no eligible host this pass; retried next tick
	  entry.completed / entry.failed / entry.aborted

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		fmt.Println(event.Type, event.Message)
	}

Delivery is best-effort: the broker buffers 100 events globally and 50 per
subscriber, and drops on overflow. Components that need a durable record read
the store, not the event stream.
*/
package events
