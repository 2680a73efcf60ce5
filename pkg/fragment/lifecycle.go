package fragment

import (
	"context"
	"sort"

	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/log"
	"github.com/cuemby/fragmentmgr/pkg/metrics"
	"github.com/cuemby/fragmentmgr/pkg/storage"
	"github.com/cuemby/fragmentmgr/pkg/types"
)

// DispatcherPatch extends an existing actor's dispatcher list, keyed by the
// actor id it's attached to.
type DispatcherPatch map[types.ActorID][]*types.Dispatcher

func vnodeNotificationsFor(job *types.TableFragments, op events.Operation) []events.VNodeMappingNotification {
	var notes []events.VNodeMappingNotification
	for _, fid := range job.FragmentIDs() {
		f := job.Fragments[fid]
		if len(f.StateTableIDs) == 0 || f.VNodeMapping == nil {
			continue
		}
		notes = append(notes, events.VNodeMappingNotification{
			Operation:       op,
			FragmentID:      fid,
			OriginalIndices: f.VNodeMapping.OriginalIndices,
			Data:            f.VNodeMapping.Data,
		})
	}
	return notes
}

// StartCreateTableFragments registers a brand-new job in the Creating
// state. Fails if the job id is already known.
func (m *Manager) StartCreateTableFragments(ctx context.Context, job *types.TableFragments) error {
	timer := metrics.NewTimer()
	err := m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		if _, ok := txn.Get(job.ID); ok {
			return nil, &JobExistsError{JobID: job.ID}
		}
		txn.Insert(job.ID, job.Clone())
		return nil, nil
	})
	if err == nil {
		timer.ObserveDuration(metrics.JobCreateDuration)
		metrics.JobsCreatedTotal.Inc()
	}
	return err
}

// PostCreateTableFragments marks every actor in job Running, records the
// initial source split assignment, patches dependent jobs' sink-fragment
// dispatchers with the chain actors that now subscribe to them, and
// announces every state-table-backed fragment's vnode mapping.
//
// Unmatched entries in a dependentActors patch (an actor id the dependent
// job no longer has) are silently discarded: the barrier coordinator may
// have computed the patch against a fragment graph that has since been
// rescheduled, and a stale patch target is not itself a consistency error.
func (m *Manager) PostCreateTableFragments(ctx context.Context, id types.JobID, dependentActors map[types.JobID]DispatcherPatch, splitAssignment map[types.ActorID][]types.SourceSplit) error {
	return m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		job, ok := txn.GetMut(id)
		if !ok {
			return nil, &JobNotFoundError{JobID: id}
		}
		if job.State != types.JobStateCreating {
			return nil, &IllegalStateError{JobID: id, Expected: types.JobStateCreating, Actual: job.State}
		}

		job.UpdateActorsState(types.ActorRunning)
		if splitAssignment != nil {
			job.SetActorSplitsBySplitAssignment(splitAssignment)
		}

		for _, depID := range sortedJobKeys(dependentActors) {
			patch := dependentActors[depID]
			dep, ok := txn.GetMut(depID)
			if !ok {
				return nil, &JobNotFoundError{JobID: depID}
			}
			remaining := make(map[types.ActorID]bool, len(patch))
			for aid := range patch {
				remaining[aid] = true
			}
			for _, fid := range dep.FragmentIDs() {
				f := dep.Fragments[fid]
				for _, a := range f.Actors {
					extra, ok := patch[a.ID]
					if !ok {
						continue
					}
					a.Dispatcher = append(a.Dispatcher, extra...)
					delete(remaining, a.ID)
				}
			}
		}

		return vnodeNotificationsFor(job, events.OperationAdd), nil
	})
}

// MarkTableFragmentsCreated transitions a job from Creating to Created.
func (m *Manager) MarkTableFragmentsCreated(ctx context.Context, id types.JobID) error {
	return m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		job, ok := txn.GetMut(id)
		if !ok {
			return nil, &JobNotFoundError{JobID: id}
		}
		if job.State != types.JobStateCreating {
			return nil, &IllegalStateError{JobID: id, Expected: types.JobStateCreating, Actual: job.State}
		}
		job.State = types.JobStateCreated
		return nil, nil
	})
}

// CancelCreateTableFragments removes a job that never finished creating.
// Idempotent: calling it for a job that isn't present (already canceled, or
// never started) logs a warning rather than returning an error.
func (m *Manager) CancelCreateTableFragments(ctx context.Context, id types.JobID) error {
	found := false
	err := m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		if _, ok := txn.Get(id); !ok {
			log.WithJobID(uint32(id)).Warn().Msg("cancel_create_table_fragments: job not found, treating as no-op")
			return nil, nil
		}
		found = true
		txn.Remove(id)
		return nil, nil
	})
	if err == nil && found {
		metrics.JobsCanceledTotal.Inc()
	}
	return err
}

// DropTableFragmentsVec removes a set of jobs, unlinking them from any
// upstream job's sink-fragment dispatchers first so no dispatcher is left
// fanning out to a chain actor that no longer exists.
func (m *Manager) DropTableFragmentsVec(ctx context.Context, ids map[types.JobID]struct{}) error {
	timer := metrics.NewTimer()
	var droppedCount int
	err := m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		sortedIDs := make([]types.JobID, 0, len(ids))
		for id := range ids {
			sortedIDs = append(sortedIDs, id)
		}
		sort.Slice(sortedIDs, func(i, j int) bool { return sortedIDs[i] < sortedIDs[j] })

		var present []types.JobID
		for _, id := range sortedIDs {
			if _, ok := txn.Get(id); ok {
				present = append(present, id)
			}
		}

		for _, id := range present {
			job, _ := txn.Get(id)
			chainActors := make(map[types.ActorID]struct{})
			for _, a := range job.ChainActorIDs() {
				chainActors[a] = struct{}{}
			}
			if len(chainActors) == 0 {
				continue
			}

			deps := make([]types.JobID, 0)
			for u := range job.DependentTableIDs() {
				deps = append(deps, u)
			}
			sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })

			for _, u := range deps {
				if _, dropping := ids[u]; dropping {
					continue
				}
				upstream, ok := txn.GetMut(u)
				if !ok {
					return nil, &JobNotFoundError{JobID: u}
				}
				for _, f := range upstream.Fragments {
					if f.Type != types.FragmentTypeSink {
						continue
					}
					for _, a := range f.Actors {
						kept := a.Dispatcher[:0]
						for _, d := range a.Dispatcher {
							d.DownstreamActorID = types.SpliceActorIDs(d.DownstreamActorID, chainActors, nil)
							if len(d.DownstreamActorID) == 0 {
								continue
							}
							kept = append(kept, d)
						}
						a.Dispatcher = kept
					}
				}
			}
		}

		droppedCount = len(present)
		var notes []events.VNodeMappingNotification
		for _, id := range present {
			job, _ := txn.Get(id)
			notes = append(notes, vnodeNotificationsFor(job, events.OperationDelete)...)
			txn.Remove(id)
		}
		return notes, nil
	})
	if err == nil {
		timer.ObserveDuration(metrics.JobDropDuration)
		metrics.JobsDroppedTotal.Add(float64(droppedCount))
	}
	return err
}

// BatchUpdateTableFragments replaces a set of already-existing jobs'
// fragment graphs wholesale, in ascending job id order, and announces every
// state-table-backed fragment's (possibly new) vnode mapping.
func (m *Manager) BatchUpdateTableFragments(ctx context.Context, list []*types.TableFragments) error {
	return m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		for _, job := range list {
			if _, ok := txn.Get(job.ID); !ok {
				return nil, &JobNotFoundError{JobID: job.ID}
			}
		}

		ordered := append([]*types.TableFragments(nil), list...)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

		var notes []events.VNodeMappingNotification
		for _, job := range ordered {
			clone := job.Clone()
			txn.Insert(clone.ID, clone)
			notes = append(notes, vnodeNotificationsFor(clone, events.OperationUpdate)...)
		}
		return notes, nil
	})
}

func sortedJobKeys(m map[types.JobID]DispatcherPatch) []types.JobID {
	ids := make([]types.JobID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
