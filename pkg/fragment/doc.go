// Package fragment is the fragment manager's core: an in-memory, ordered
// index of every job's table fragments guarded by a single readers-writer
// lock, durable through pkg/storage and observable through pkg/events.
//
// Writes follow one discipline throughout the package: acquire the write
// lock, stage edits against a storage.Txn built from the live map, commit
// the resulting batch to the meta store, apply it to the live map, release
// the lock, and only then publish notifications. See Manager.withWriteTxn.
// The two reschedule bookkeeping calls, PreApplyReschedules and
// CancelApplyReschedules, are the deliberate exception: they mutate the
// live map directly without going through the meta store, since the actors
// they stage may never be confirmed by a barrier.
package fragment
