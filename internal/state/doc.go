// Package state holds client-side state that is not owned by a single polled
// resource.
//
// # Selection
//
// Selection is the selected-device projection: a copy of whichever device the
// consumer has focused. Two writers touch it:
//
//   - push notifications (device_status) call Merge with a partial JSON
//     object; present fields overwrite, absent fields are kept
//   - the devices resource calls Sync with each applied roster
//
// Both carry the devices resource's sequence numbers. Merge records the
// latest issued sequence as a mark, and Sync ignores any roster whose
// sequence is not newer than that mark. A scheduled roster fetch that was
// already in flight when a push arrived therefore cannot silently undo the
// merged fields; the refetch the push itself triggers is issued after the
// mark and replaces the projection with the server's view.
//
// # Concurrency
//
// Selection is guarded by a sync.RWMutex and returns copies from Current.
// The zero value is ready to use.
package state
