package storage

import (
	"sort"

	"github.com/cuemby/fragmentmgr/pkg/types"
)

type stagedEntry struct {
	value   *types.TableFragments
	deleted bool
}

// Txn stages inserts, removals and in-place mutations against a read-only
// snapshot of the live job set. Nothing it stages is visible outside the
// transaction until Batch() is built and successfully committed to a
// MetaStore; the caller is responsible for only then applying that batch to
// the live store.
type Txn struct {
	base   map[types.JobID]*types.TableFragments
	staged map[types.JobID]*stagedEntry
}

// NewTxn begins a transaction reading from base. base is never mutated.
func NewTxn(base map[types.JobID]*types.TableFragments) *Txn {
	return &Txn{base: base, staged: make(map[types.JobID]*stagedEntry)}
}

// Get returns the current value for id, reflecting any prior staged edit.
func (t *Txn) Get(id types.JobID) (*types.TableFragments, bool) {
	if s, ok := t.staged[id]; ok {
		if s.deleted {
			return nil, false
		}
		return s.value, true
	}
	v, ok := t.base[id]
	return v, ok
}

// GetMut stages a clone of id's current value and returns it for the caller
// to mutate in place. Repeated GetMut calls on the same id within one
// transaction compose: each clones the previous stage's result, not the
// original base value.
func (t *Txn) GetMut(id types.JobID) (*types.TableFragments, bool) {
	cur, ok := t.Get(id)
	if !ok {
		return nil, false
	}
	clone := cur.Clone()
	t.staged[id] = &stagedEntry{value: clone}
	return clone, true
}

// Insert stages v as the new value for id, whether or not id already
// existed.
func (t *Txn) Insert(id types.JobID, v *types.TableFragments) {
	t.staged[id] = &stagedEntry{value: v}
}

// Remove stages id for deletion.
func (t *Txn) Remove(id types.JobID) {
	t.staged[id] = &stagedEntry{deleted: true}
}

// IDs returns every job id visible in the transaction (base, minus staged
// deletes, plus staged inserts), sorted ascending. Useful for operations
// that must search across jobs rather than being handed one directly.
func (t *Txn) IDs() []types.JobID {
	set := make(map[types.JobID]struct{}, len(t.base))
	for id := range t.base {
		set[id] = struct{}{}
	}
	for id, s := range t.staged {
		if s.deleted {
			delete(set, id)
		} else {
			set[id] = struct{}{}
		}
	}
	ids := make([]types.JobID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Batch builds the ordered, deterministic batch of every staged edit.
func (t *Txn) Batch() Batch {
	ids := make([]types.JobID, 0, len(t.staged))
	for id := range t.staged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b Batch
	for _, id := range ids {
		s := t.staged[id]
		if s.deleted {
			b.Deletes = append(b.Deletes, DeleteRecord{JobID: id})
		} else {
			b.Puts = append(b.Puts, PutRecord{JobID: id, Value: s.value})
		}
	}
	return b
}
