// Package docstore is a revisioned JSON document store over SQLite.
//
// Every document carries a revision token that changes on each write.
// Updates and deletes must present the current revision; a stale one
// fails with ErrConflict and the caller re-reads and retries. This gives
// the layers above optimistic concurrency without row locks.
//
// Documents are typed ("job", "trigger", "calendar") and queried through
// json_extract expression indexes, so selective scans stay cheap without
// promoting fields into real columns.
package docstore
