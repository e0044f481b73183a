// Package http implements the dashboard API handlers.
//
// Handlers only parse requests and shape responses. Failures are rendered as RFC 7807
// problem documents through errors.ErrorHandler.
//
// Routes mounted under /api:
//
//	GET  /index/snapshot     latest snapshot (stats JSON)
//	GET  /index/series       smoothed series as JSON, ?since=RFC3339&limit=N
//	GET  /index/series.csv   the intraday CSV
//	GET  /index/chart.svg    chart of the latest series
//	GET  /index/status       run state
//	POST /index/refresh      trigger a run, when enabled
//	GET  /health             liveness
//	GET  /health/ready       readiness
package http
