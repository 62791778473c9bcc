/*
Package api provides the Hutch daemon's read-only HTTP surface.

Four endpoints, all GET:

	/health    liveness: 200 while the process runs
	/ready     readiness: storage reachable, components healthy
	/status    JSON lab summary: hosts by status, lock/lease counts,
	           job and pending-entry totals
	/metrics   Prometheus exposition

The scheduling core deliberately has no RPC surface; jobs and inventory enter
through the CLI against the local store. This package exists for probes,
dashboards, and scraping only, which is why every handler rejects non-GET
methods and nothing here mutates state.
*/
package api
