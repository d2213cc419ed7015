// Package repositories implements SQLite persistence for mediactl's local state.
//
// Key Implementations:
//   - [UploadRepository] : journal of upload sessions and the phase each reached
//   - [PlaylistOrderRepository] : the last order written for each playlist and whether it succeeded
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// [NextSequence] advances the per-table counters kept in "{table}_sequence" tables.
package repositories
