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

// ActorShell is a newly-built actor and its initial status, handed to
// PreApplyReschedules before the barrier coordinator has delivered the
// barrier that makes it live.
type ActorShell struct {
	Actor  *types.Actor
	Status types.ActorStatus
}

// RescheduleLedger records, per fragment, which actor ids PreApplyReschedules
// staged — the exact bookkeeping CancelApplyReschedules needs to undo it.
type RescheduleLedger map[types.FragmentID]map[types.ActorID]struct{}

func sortedFragmentKeysShells(m map[types.FragmentID]map[types.ActorID]*ActorShell) []types.FragmentID {
	ids := make([]types.FragmentID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedFragmentKeysLedger(m RescheduleLedger) []types.FragmentID {
	ids := make([]types.FragmentID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedActorShellKeys(m map[types.ActorID]*ActorShell) []types.ActorID {
	ids := make([]types.ActorID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PreApplyReschedules adds newly-built actors (not yet live in a running
// barrier pipeline) to their target fragments, entirely in memory: this
// does not touch the meta store, since the barrier that makes these actors
// real may never be delivered. Returns a ledger CancelApplyReschedules can
// use to undo exactly this call if the barrier coordinator gives up.
func (m *Manager) PreApplyReschedules(created map[types.FragmentID]map[types.ActorID]*ActorShell) (RescheduleLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger := make(RescheduleLedger)
	for _, fid := range sortedFragmentKeysShells(created) {
		shells := created[fid]
		jobID, tf, ok := m.findJobOwningFragmentLocked(fid)
		if !ok {
			return nil, &FragmentNotFoundError{FragmentID: fid}
		}

		clone := tf.Clone()
		f := clone.Fragments[fid]
		createdIDs := make(map[types.ActorID]struct{}, len(shells))
		for _, aid := range sortedActorShellKeys(shells) {
			shell := shells[aid]
			f.Actors = append(f.Actors, shell.Actor.Clone())
			status := shell.Status
			clone.ActorStatus[aid] = &status
			createdIDs[aid] = struct{}{}
		}

		m.jobs.Set(jobID, clone)
		ledger[fid] = createdIDs
	}
	return ledger, nil
}

// CancelApplyReschedules undoes exactly the actors a prior
// PreApplyReschedules call staged, entirely in memory. Fragments that are
// no longer present (e.g. the job was dropped in the meantime) are silently
// skipped.
func (m *Manager) CancelApplyReschedules(ledger RescheduleLedger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ledger) != 0 {
		metrics.ReschedulesCanceledTotal.Inc()
	}

	for _, fid := range sortedFragmentKeysLedger(ledger) {
		actorIDs := ledger[fid]
		jobID, tf, ok := m.findJobOwningFragmentLocked(fid)
		if !ok {
			continue
		}

		clone := tf.Clone()
		f := clone.Fragments[fid]
		f.Actors = removeActors(f.Actors, actorIDs)
		for aid := range actorIDs {
			delete(clone.ActorStatus, aid)
			delete(clone.ActorSplits, aid)
		}
		m.jobs.Set(jobID, clone)
	}
}

// PostApplyReschedules commits a batch of per-fragment ReschedulePlans:
// sets added actors Running, drops removed actors' status and splits,
// merges in split reassignments, patches vnode bitmaps, recomputes each
// fragment's vnode mapping, and patches the dispatcher/merge routing of the
// fragments immediately upstream and downstream of each rescheduled
// fragment. Jobs are processed in ascending id order and, within a job,
// fragments in ascending id order, so upstream dispatcher patches always
// land before the downstream merge patches that depend on the same added
// actor set. Panics (ConsistencyBug) if plans references a fragment no
// known job has.
func (m *Manager) PostApplyReschedules(ctx context.Context, plans map[types.FragmentID]*types.ReschedulePlan) error {
	timer := metrics.NewTimer()
	remaining := make(map[types.FragmentID]*types.ReschedulePlan, len(plans))
	for fid, p := range plans {
		remaining[fid] = p
	}

	newActors := make(map[types.ActorID]struct{})
	for _, p := range plans {
		for _, aid := range p.AddedActors {
			newActors[aid] = struct{}{}
		}
	}

	err := m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		var notes []events.VNodeMappingNotification
		mutated := make(map[types.JobID]*types.TableFragments)

		getMut := func(jobID types.JobID) *types.TableFragments {
			if job, ok := mutated[jobID]; ok {
				return job
			}
			job, _ := txn.GetMut(jobID)
			mutated[jobID] = job
			return job
		}

		for _, jid := range txn.IDs() {
			tf, _ := txn.Get(jid)
			var owned []types.FragmentID
			for fid := range remaining {
				if _, ok := tf.Fragments[fid]; ok {
					owned = append(owned, fid)
				}
			}
			if len(owned) == 0 {
				continue
			}
			sort.Slice(owned, func(i, j int) bool { return owned[i] < owned[j] })

			job := getMut(jid)
			for _, fid := range owned {
				plan := remaining[fid]
				delete(remaining, fid)

				note, err := applyReschedulePlan(job, fid, plan, newActors)
				if err != nil {
					return nil, err
				}
				if note != nil {
					notes = append(notes, *note)
				}
			}
		}

		if len(remaining) != 0 {
			var stray []types.FragmentID
			for fid := range remaining {
				stray = append(stray, fid)
				log.WithFragmentID(uint32(fid)).Error().Msg("post_apply_reschedules: plan references a fragment no job owns")
			}
			consistencyBug("post_apply_reschedules: %d plan(s) reference fragments no job owns: %v", len(stray), stray)
		}

		return notes, nil
	})
	if err == nil {
		timer.ObserveDuration(metrics.RescheduleApplyDuration)
		metrics.ReschedulesAppliedTotal.Inc()
	}
	return err
}

func applyReschedulePlan(job *types.TableFragments, fid types.FragmentID, plan *types.ReschedulePlan, newActors map[types.ActorID]struct{}) (*events.VNodeMappingNotification, error) {
	removedSet := make(map[types.ActorID]struct{}, len(plan.RemovedActors))
	for _, aid := range plan.RemovedActors {
		removedSet[aid] = struct{}{}
	}

	for _, aid := range plan.AddedActors {
		st, ok := job.ActorStatus[aid]
		if !ok {
			return nil, &ActorNotFoundError{ActorID: aid}
		}
		st.State = types.ActorRunning
	}

	for aid := range removedSet {
		delete(job.ActorStatus, aid)
		delete(job.ActorSplits, aid)
	}

	for aid, splits := range plan.ActorSplits {
		job.ActorSplits[aid] = splits
	}

	f, ok := job.Fragments[fid]
	if !ok {
		return nil, &FragmentNotFoundError{JobID: job.ID, FragmentID: fid}
	}

	for _, a := range f.Actors {
		if bitmap, ok := plan.VNodeBitmapUpdates[a.ID]; ok {
			a.VNodeBitmap = bitmap
		}
	}
	f.Actors = removeActors(f.Actors, removedSet)

	var note *events.VNodeMappingNotification
	if f.VNodeMapping != nil {
		actorToPU := make(map[types.ActorID]types.ParallelUnitID, len(f.Actors))
		for _, a := range f.Actors {
			if st, ok := job.ActorStatus[a.ID]; ok {
				actorToPU[a.ID] = st.ParallelUnit.ID
			}
		}

		if plan.UpstreamDispatcherMapping != nil {
			f.VNodeMapping = plan.UpstreamDispatcherMapping.ToParallelUnitMapping(actorToPU)
		}

		if len(f.StateTableIDs) != 0 {
			note = &events.VNodeMappingNotification{
				Operation:       events.OperationUpdate,
				FragmentID:      fid,
				OriginalIndices: f.VNodeMapping.OriginalIndices,
				Data:            f.VNodeMapping.Data,
			}
		}
	}

	for _, ufd := range plan.UpstreamFragmentDispatcherIDs {
		upstream, ok := job.Fragments[ufd.UpstreamFragmentID]
		if !ok {
			return nil, &FragmentNotFoundError{JobID: job.ID, FragmentID: ufd.UpstreamFragmentID}
		}
		for _, ua := range upstream.Actors {
			if _, isNew := newActors[ua.ID]; isNew {
				continue
			}
			for _, d := range ua.Dispatcher {
				if d.ID != ufd.DispatcherID {
					continue
				}
				d.HashMapping = plan.UpstreamDispatcherMapping.Clone()
				d.DownstreamActorID = types.SpliceActorIDs(d.DownstreamActorID, removedSet, plan.AddedActors)
			}
		}
	}

	if plan.DownstreamFragmentID != nil {
		downstream, ok := job.Fragments[*plan.DownstreamFragmentID]
		if !ok {
			return nil, &FragmentNotFoundError{JobID: job.ID, FragmentID: *plan.DownstreamFragmentID}
		}
		for _, da := range downstream.Actors {
			if _, isNew := newActors[da.ID]; isNew {
				continue
			}
			da.UpstreamActorID = types.SpliceActorIDs(da.UpstreamActorID, removedSet, plan.AddedActors)
			da.Node.PatchMergeUpstream(fid, removedSet, plan.AddedActors)
		}
	}

	return note, nil
}
