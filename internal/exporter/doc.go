// Package exporter writes the artifacts of an index run.
//
// Every run produces, under the output directory:
//
//	<key>_intraday.csv    timestamp,pct rows (RFC3339, 6 decimals)
//	<key>_stats.json      the latest snapshot
//	last_run.txt          generation time
//	<key>_intraday.xlsx   optional workbook mirroring the CSV
//
// Writer stages every artifact as a temp file in the output directory and renames them
// into place only after all of them were written, so readers never observe a mix of old
// and new artifacts and a failed run leaves the previous artifacts untouched.
//
// Example usage:
//
//	w := exporter.NewWriter(exporter.Options{Dir: "docs/outputs", Key: "HINOSEMI", Location: jst}, logger)
//	snap, err := exporter.NewSnapshot("HINOSEMI", result.Series, basket.Symbols(), now, jst)
//	err = w.Write(ctx, result.Series, snap, now)
package exporter
