// Package storage holds the meta store contract: the external transactional
// key/value dependency the fragment manager persists through, plus the
// staged multi-job transaction helper (C1) that batches writes against it.
package storage

import (
	"context"

	"github.com/cuemby/fragmentmgr/pkg/types"
)

// PutRecord stages one job's fragment graph for write.
type PutRecord struct {
	JobID types.JobID
	Value *types.TableFragments
}

// DeleteRecord stages one job's fragment graph for removal.
type DeleteRecord struct {
	JobID types.JobID
}

// Batch is an ordered set of writes to apply atomically. Order is
// deterministic (ascending job id) so two batches built from the same
// staged edits always serialize identically.
type Batch struct {
	Puts    []PutRecord
	Deletes []DeleteRecord
}

// Empty reports whether the batch has no work.
func (b Batch) Empty() bool {
	return len(b.Puts) == 0 && len(b.Deletes) == 0
}

// MetaStore is the durable key/value dependency the fragment manager
// persists every job's fragment graph through, keyed by job id. Commit must
// apply every record in a batch atomically: either all of it is visible to
// a subsequent List, or none of it is.
type MetaStore interface {
	// List returns every persisted job's fragment graph, used once at
	// startup to rehydrate the in-memory store.
	List(ctx context.Context) ([]*types.TableFragments, error)

	// Commit applies batch atomically.
	Commit(ctx context.Context, batch Batch) error
}
