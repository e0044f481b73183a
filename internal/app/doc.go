// Package app wires configuration into running components.
//
// NewPipeline builds the run machinery used by every command: the market-data
// provider selected by provider.kind, the interval-fallback fetcher, the atomic
// artifact writer, the enabled publishers and the operations runner.
//
// NewApplication builds the dashboard server on top of a Pipeline. It adds the
// websocket hub that receives every finished run, the cron scheduler when
// schedule.enabled is set, and the HTTP API:
//
//	/api/index/*        snapshot, series, chart, status and refresh
//	/api/health         liveness
//	/api/health/ready   readiness, ready once a snapshot exists
//	/ws                 live snapshot push
//	/metrics            Prometheus exposition, when telemetry.metrics is set
//
// Run blocks until SIGINT or SIGTERM and then stops the scheduler, drains the
// server, closes the hub and flushes telemetry. Initialization errors are
// returned; the package never calls os.Exit.
package app
