// Package operations runs the index pipeline end to end.
//
// A run fetches the basket, builds the index, writes the artifacts and hands the result
// to publishers and live subscribers:
//
//	fetch -> build -> write -> publish -> notify
//
// Every run gets a UUID that is used as the log trace ID and as the OpenTelemetry span
// attribute run.id. Only ErrNoDataAtAll (no instrument produced any data) and write
// failures fail a run; publisher errors are logged and recorded on the summary.
//
// Runner never executes two runs at the same time: a Run call made while another is in
// progress returns ErrRunInProgress. Scheduler triggers runs from a cron spec.
package operations
