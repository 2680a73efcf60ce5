/*
Package storage defines the fragment manager's persistence contract.

MetaStore is the only dependency this package assumes: an atomic-batch
key/value store keyed by job id. BoltMetaStore implements it on an embedded
BoltDB file, one JSON-encoded row per job, the way the rest of this module's
lineage persists state.

Txn is the staged, multi-job transaction helper that sits in front of
MetaStore: callers read and mutate cloned job values through it, then hand
the resulting batch to MetaStore.Commit. Nothing staged is visible to a
concurrent reader of the live store until commit succeeds.
*/
package storage
