/*
Package log provides structured logging for Hutch using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity for production debugging of the lab scheduler.

# Usage

Initialize the global logger once at process startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Components derive child loggers carrying identifying fields so every lease,
deferral, and release can be traced back to the host, job, and queue entry
involved:

	logger := log.WithComponent("scheduler")
	logger.Info().
		Str("host_id", host.ID).
		Str("entry_id", entry.ID).
		Msg("host leased")

# Output Formats

JSON (production, machine-parseable):

	{"level":"info","component":"scheduler","host_id":"h-42","time":"2026-01-12T10:30:00Z","message":"host leased"}

Console (development, human-readable):

	2026-01-12T10:30:00Z INF host leased component=scheduler host_id=h-42
*/
package log
