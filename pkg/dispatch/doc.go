/*
Package dispatch defines the boundary between the scheduling core and the
job-runner machinery.

A Dispatcher receives each leased (queue entry, host) pairing produced by a
scheduling pass. The scheduler guarantees the pairing is committed (host
leased, entry assigned) before Dispatch is called; the dispatcher owns
everything after that. Two implementations ship with hutch: LogDispatcher,
which only records pairings, and ChanDispatcher, which hands them to an
embedding process over a channel.
*/
package dispatch
