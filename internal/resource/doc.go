// Package resource implements a periodically refreshed, locally cached view
// of one piece of remote state.
//
// # Overview
//
// A Resource owns exactly one ticker for its whole lifetime. Scheduled ticks
// and manual Refetch calls both issue fetches tagged with a monotonically
// increasing sequence number. A result is applied only when its sequence is
// newer than the last applied one, so the most recently issued request wins
// even if an older one resolves later.
//
// # Update Semantics
//
//	// Success: replace the value, clear the error
//	snap.Value = value
//	snap.Err = nil
//	snap.ConsecutiveFailures = 0
//
//	// Failure: keep the value, record the error
//	snap.Value = <unchanged>
//	snap.Err = err
//	snap.ConsecutiveFailures++
//
// IsOffline reports two or more failures in a row.
//
// # Lifecycle
//
// Start is the only way to acquire a Resource and issues the first fetch
// immediately. Close, or cancelling the context passed to Start, stops the
// ticker. Fetches still in flight finish but their results are dropped.
// Close is idempotent.
//
// # Observers
//
// Subscribe registers a callback invoked after every applied result,
// outside the lock. Callbacks from different fetches may interleave; compare
// Snapshot.Seq when order matters.
package resource
