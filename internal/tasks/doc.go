// Package tasks runs long playlist operations on a worker pool with progress
// reporting.
//
// # Bulk export
//
// [BulkExport] fetches playlists with their media, renders each one in the
// requested [formatter.Format] and writes one file per playlist into an output
// directory. Fetches are rate limited; rendering and writing run on a bounded
// pool of workers. A failed playlist is recorded in the result and does not stop
// the others. An export_manifest.json summarizing every playlist is written last.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never
// block: when the receiver is slow, updates are dropped.
package tasks
