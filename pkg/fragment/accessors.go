package fragment

import (
	"context"
	"sort"

	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/storage"
	"github.com/cuemby/fragmentmgr/pkg/types"
)

// ListTableFragments returns every known job's table fragments, cloned so
// the caller can't mutate manager state through the returned pointers.
func (m *Manager) ListTableFragments(ctx context.Context) []*types.TableFragments {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.TableFragments, 0, m.jobs.Len())
	for _, id := range m.jobs.Keys() {
		tf, _ := m.jobs.Get(id)
		out = append(out, tf.Clone())
	}
	return out
}

// SelectTableFragmentsByTableID returns a clone of one job's table
// fragments.
func (m *Manager) SelectTableFragmentsByTableID(id types.JobID) (*types.TableFragments, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(id)
	if !ok {
		return nil, &JobNotFoundError{JobID: id}
	}
	return tf.Clone(), nil
}

// LoadAllActors returns the lifecycle state of every actor across every
// known job.
func (m *Manager) LoadAllActors(ctx context.Context) map[types.ActorID]types.ActorLifecycleState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[types.ActorID]types.ActorLifecycleState)
	for _, id := range m.jobs.Keys() {
		tf, _ := m.jobs.Get(id)
		for aid, st := range tf.ActorStatus {
			out[aid] = st.State
		}
	}
	return out
}

// AllNodeActors groups every running actor across every job by the worker
// currently running it.
func (m *Manager) AllNodeActors() map[types.WorkerID][]types.ActorID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[types.WorkerID][]types.ActorID)
	for _, id := range m.jobs.Keys() {
		tf, _ := m.jobs.Get(id)
		for w, ids := range tf.WorkerActorIDs(false) {
			out[w] = append(out[w], ids...)
		}
	}
	return out
}

// AllChainActorIDs returns every job's Chain fragment actor ids, keyed by
// job id.
func (m *Manager) AllChainActorIDs() map[types.JobID][]types.ActorID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[types.JobID][]types.ActorID, m.jobs.Len())
	for _, id := range m.jobs.Keys() {
		tf, _ := m.jobs.Get(id)
		if chain := tf.ChainActorIDs(); len(chain) > 0 {
			out[id] = chain
		}
	}
	return out
}

// GetRunningActorsOfFragment returns the running actor ids of one fragment.
func (m *Manager) GetRunningActorsOfFragment(jobID types.JobID, fragmentID types.FragmentID) ([]types.ActorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}
	f, ok := tf.Fragments[fragmentID]
	if !ok {
		return nil, &FragmentNotFoundError{JobID: jobID, FragmentID: fragmentID}
	}

	actors := append([]*types.Actor(nil), f.Actors...)
	sort.Slice(actors, func(i, j int) bool { return actors[i].ID < actors[j].ID })

	var ids []types.ActorID
	for _, a := range actors {
		if st, ok := tf.ActorStatus[a.ID]; ok && st.State == types.ActorRunning {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// TableNodeActors groups one job's actors by the worker running them.
func (m *Manager) TableNodeActors(jobID types.JobID, includeInactive bool) (map[types.WorkerID][]types.ActorIDState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}
	return tf.WorkerActorStates(includeInactive), nil
}

// GetTableActorIDs returns every actor id belonging to one job.
func (m *Manager) GetTableActorIDs(jobID types.JobID) ([]types.ActorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}
	return tf.ActorIDs(), nil
}

// GetTableSinkActorIDs returns one job's sink-fragment actor ids.
func (m *Manager) GetTableSinkActorIDs(jobID types.JobID) ([]types.ActorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}
	return tf.SinkActorIDs(), nil
}

// GetBuildGraphInfo returns the set of upstream jobs a job's Chain
// fragments bridge in from, used by the barrier coordinator when assembling
// a new job's actor graph.
func (m *Manager) GetBuildGraphInfo(jobID types.JobID) (map[types.JobID]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}
	return tf.DependentTableIDs(), nil
}

// GetSinkVNodeBitmapInfo returns the per-actor vnode bitmap of one job's
// sink fragment.
func (m *Manager) GetSinkVNodeBitmapInfo(jobID types.JobID) (map[types.ActorID]*types.VNodeBitmap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}
	return tf.SinkVNodeBitmapInfo(), nil
}

// GetSinkFragmentVNodeInfo returns one job's sink fragment's current
// per-actor parallel unit assignment together with its vnode mapping, the
// pair a downstream job's Chain fragment needs to attach correctly.
func (m *Manager) GetSinkFragmentVNodeInfo(jobID types.JobID) (map[types.ActorID]types.ParallelUnit, *types.VNodeMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.jobs.Get(jobID)
	if !ok {
		return nil, nil, &JobNotFoundError{JobID: jobID}
	}
	return tf.SinkActorParallelUnits(), tf.SinkVNodeMapping(), nil
}

// GetTablesWorkerActors groups each named job's actors by worker.
func (m *Manager) GetTablesWorkerActors(jobIDs []types.JobID) (map[types.JobID]map[types.WorkerID][]types.ActorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[types.JobID]map[types.WorkerID][]types.ActorID, len(jobIDs))
	for _, id := range jobIDs {
		tf, ok := m.jobs.Get(id)
		if !ok {
			return nil, &JobNotFoundError{JobID: id}
		}
		out[id] = tf.WorkerActorIDs(true)
	}
	return out, nil
}

// UpdateActorSplitsBySplitAssignment replaces one job's actor-splits side
// table wholesale and commits it.
func (m *Manager) UpdateActorSplitsBySplitAssignment(ctx context.Context, jobID types.JobID, assignment map[types.ActorID][]types.SourceSplit) error {
	return m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		job, ok := txn.GetMut(jobID)
		if !ok {
			return nil, &JobNotFoundError{JobID: jobID}
		}
		job.SetActorSplitsBySplitAssignment(assignment)
		return nil, nil
	})
}

// FragmentMapping is one fragment's published vnode routing table, as
// surfaced by WithReadLock for bulk snapshot iteration (e.g. serving a
// full resync to a newly (re)connected subscriber).
type FragmentMapping struct {
	JobID      types.JobID
	FragmentID types.FragmentID
	Mapping    *types.VNodeMapping
}

// WithReadLock runs fn under the manager's read lock, handing it snapshot
// accessors for bulk iteration that would otherwise require one lock
// acquisition per job.
func (m *Manager) WithReadLock(fn func(allFragmentMappings func() []FragmentMapping, allInternalTables func() map[types.JobID][]types.TableID)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allFragmentMappings := func() []FragmentMapping {
		var out []FragmentMapping
		for _, jid := range m.jobs.Keys() {
			tf, _ := m.jobs.Get(jid)
			for _, fid := range tf.FragmentIDs() {
				f := tf.Fragments[fid]
				if len(f.StateTableIDs) == 0 || f.VNodeMapping == nil {
					continue
				}
				out = append(out, FragmentMapping{JobID: jid, FragmentID: fid, Mapping: f.VNodeMapping})
			}
		}
		return out
	}

	allInternalTables := func() map[types.JobID][]types.TableID {
		out := make(map[types.JobID][]types.TableID, m.jobs.Len())
		for _, jid := range m.jobs.Keys() {
			tf, _ := m.jobs.Get(jid)
			out[jid] = tf.StateTableIDs()
		}
		return out
	}

	fn(allFragmentMappings, allInternalTables)
}
