// Package recorder writes append-only turn logs for replay and offline
// analysis.
//
// Each session gets its own directory under the record dir:
//
//	<dir>/<session>/turns-2006-01-02-15.jsonl.zst   (FormatJSONL, hourly)
//	<dir>/<session>/turns-<nanos>.parquet           (FormatParquet, per episode)
//
// Logs are never read back into a live session.
package recorder
