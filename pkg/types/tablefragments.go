package types

// This file holds TableFragments' derived-query methods: pure functions of
// the current fragment graph, no locking, no I/O. Every method that groups
// or lists entities sorts its keys first so two calls against equal inputs
// always return equal output, independent of Go map iteration order.

func (tf *TableFragments) sortedFragmentIDs() []FragmentID {
	ids := make([]FragmentID, 0, len(tf.Fragments))
	for id := range tf.Fragments {
		ids = append(ids, id)
	}
	sortFragmentIDs(ids)
	return ids
}

// FragmentIDs returns every fragment id in the job, sorted.
func (tf *TableFragments) FragmentIDs() []FragmentID {
	return tf.sortedFragmentIDs()
}

// ActorIDs returns every actor id in the job, sorted.
func (tf *TableFragments) ActorIDs() []ActorID {
	ids := make([]ActorID, 0, len(tf.ActorStatus))
	for id := range tf.ActorStatus {
		ids = append(ids, id)
	}
	sortActorIDs(ids)
	return ids
}

func (tf *TableFragments) actorIDsOfType(t FragmentType) []ActorID {
	var ids []ActorID
	for _, fid := range tf.sortedFragmentIDs() {
		f := tf.Fragments[fid]
		if f.Type != t {
			continue
		}
		for _, a := range f.sortedActors() {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// ChainActorIDs returns the actor ids of every Chain fragment, sorted by
// fragment id then actor id.
func (tf *TableFragments) ChainActorIDs() []ActorID {
	return tf.actorIDsOfType(FragmentTypeChain)
}

// SinkActorIDs returns the actor ids of every Sink fragment.
func (tf *TableFragments) SinkActorIDs() []ActorID {
	return tf.actorIDsOfType(FragmentTypeSink)
}

func (tf *TableFragments) groupActorsByWorker(includeInactive bool, typeFilter *FragmentType) map[WorkerID][]ActorIDState {
	out := make(map[WorkerID][]ActorIDState)
	for _, fid := range tf.sortedFragmentIDs() {
		f := tf.Fragments[fid]
		if typeFilter != nil && f.Type != *typeFilter {
			continue
		}
		for _, a := range f.sortedActors() {
			st := tf.ActorStatus[a.ID]
			if st == nil {
				continue
			}
			if !includeInactive && st.State != ActorRunning {
				continue
			}
			out[st.ParallelUnit.WorkerID] = append(out[st.ParallelUnit.WorkerID], ActorIDState{ActorID: a.ID, State: st.State})
		}
	}
	return out
}

// WorkerActorStates groups (actor id, state) pairs by the worker currently
// running them. Pass includeInactive to also surface actors that haven't
// joined a running barrier pipeline yet.
func (tf *TableFragments) WorkerActorStates(includeInactive bool) map[WorkerID][]ActorIDState {
	return tf.groupActorsByWorker(includeInactive, nil)
}

// WorkerSourceActorStates is WorkerActorStates restricted to Source
// fragments.
func (tf *TableFragments) WorkerSourceActorStates(includeInactive bool) map[WorkerID][]ActorIDState {
	t := FragmentTypeSource
	return tf.groupActorsByWorker(includeInactive, &t)
}

// WorkerActorIDs groups actor ids (dropping state) by the worker running
// them.
func (tf *TableFragments) WorkerActorIDs(includeInactive bool) map[WorkerID][]ActorID {
	grouped := tf.groupActorsByWorker(includeInactive, nil)
	out := make(map[WorkerID][]ActorID, len(grouped))
	for w, states := range grouped {
		ids := make([]ActorID, len(states))
		for i, s := range states {
			ids[i] = s.ActorID
		}
		out[w] = ids
	}
	return out
}

// DependentTableIDs returns the set of upstream jobs this job's Chain
// fragments bridge in from.
func (tf *TableFragments) DependentTableIDs() map[JobID]struct{} {
	out := make(map[JobID]struct{})
	for _, f := range tf.Fragments {
		if f.Type == FragmentTypeChain && f.UpstreamJobID != nil {
			out[*f.UpstreamJobID] = struct{}{}
		}
	}
	return out
}

// StateTableIDs returns the sorted, deduplicated union of every fragment's
// internal state table ids.
func (tf *TableFragments) StateTableIDs() []TableID {
	set := make(map[TableID]struct{})
	for _, f := range tf.Fragments {
		for _, t := range f.StateTableIDs {
			set[t] = struct{}{}
		}
	}
	out := make([]TableID, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sortTableIDs(out)
	return out
}

// UpdateActorsState bulk-sets the lifecycle state of every actor in the job.
func (tf *TableFragments) UpdateActorsState(s ActorLifecycleState) {
	for _, st := range tf.ActorStatus {
		st.State = s
	}
}

// SetActorSplitsBySplitAssignment replaces the job's actor-splits side
// table wholesale.
func (tf *TableFragments) SetActorSplitsBySplitAssignment(assignment map[ActorID][]SourceSplit) {
	tf.ActorSplits = make(map[ActorID][]SourceSplit, len(assignment))
	for id, splits := range assignment {
		tf.ActorSplits[id] = cloneSplits(splits)
	}
}

// UpdateVNodeMapping rewrites every fragment's vnode mapping in place,
// substituting parallel unit ids per sub.
func (tf *TableFragments) UpdateVNodeMapping(sub map[ParallelUnitID]ParallelUnitID) {
	for _, f := range tf.Fragments {
		if f.VNodeMapping != nil {
			f.VNodeMapping = f.VNodeMapping.Rewrite(sub)
		}
	}
}

// sinkFragment returns the lowest-id Sink fragment in the job, if any.
func (tf *TableFragments) sinkFragment() *Fragment {
	for _, fid := range tf.sortedFragmentIDs() {
		f := tf.Fragments[fid]
		if f.Type == FragmentTypeSink {
			return f
		}
	}
	return nil
}

// SinkVNodeBitmapInfo returns the per-actor vnode bitmap of the job's sink
// fragment.
func (tf *TableFragments) SinkVNodeBitmapInfo() map[ActorID]*VNodeBitmap {
	out := make(map[ActorID]*VNodeBitmap)
	f := tf.sinkFragment()
	if f == nil {
		return out
	}
	for _, a := range f.sortedActors() {
		if a.VNodeBitmap != nil {
			out[a.ID] = a.VNodeBitmap
		}
	}
	return out
}

// SinkActorParallelUnits returns the current ParallelUnit of each actor in
// the job's sink fragment.
func (tf *TableFragments) SinkActorParallelUnits() map[ActorID]ParallelUnit {
	out := make(map[ActorID]ParallelUnit)
	f := tf.sinkFragment()
	if f == nil {
		return out
	}
	for _, a := range f.sortedActors() {
		if st, ok := tf.ActorStatus[a.ID]; ok {
			out[a.ID] = st.ParallelUnit
		}
	}
	return out
}

// SinkVNodeMapping returns the job's sink fragment's vnode mapping, if any.
func (tf *TableFragments) SinkVNodeMapping() *VNodeMapping {
	f := tf.sinkFragment()
	if f == nil {
		return nil
	}
	return f.VNodeMapping
}
