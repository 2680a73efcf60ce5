package fragment

import (
	"context"
	"sync"

	"github.com/cuemby/fragmentmgr/pkg/cluster"
	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/storage"
	"github.com/cuemby/fragmentmgr/pkg/types"
)

// memStore is an in-memory storage.MetaStore for tests, with an optional
// forced failure mode for exercising the rollback-on-commit-error path.
type memStore struct {
	mu      sync.Mutex
	rows    map[types.JobID]*types.TableFragments
	failErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[types.JobID]*types.TableFragments)}
}

func (s *memStore) List(ctx context.Context) ([]*types.TableFragments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.TableFragments, 0, len(s.rows))
	for _, v := range s.rows {
		out = append(out, v.Clone())
	}
	return out, nil
}

func (s *memStore) Commit(ctx context.Context, batch storage.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, p := range batch.Puts {
		s.rows[p.JobID] = p.Value
	}
	for _, d := range batch.Deletes {
		delete(s.rows, d.JobID)
	}
	return nil
}

// fakeCluster is a cluster.Manager with a fixed worker inventory.
type fakeCluster struct {
	nodes map[types.WorkerID]*cluster.WorkerNode
}

func (c *fakeCluster) Nodes(ctx context.Context) (map[types.WorkerID]*cluster.WorkerNode, error) {
	return c.nodes, nil
}

func newTestManager(t interface{ Helper() }) (*Manager, *memStore) {
	t.Helper()
	store := newMemStore()
	broker := events.NewBroker()
	broker.Start()
	mgr, err := NewManager(context.Background(), store, &fakeCluster{}, broker, 16)
	if err != nil {
		panic(err)
	}
	return mgr, store
}

func actorFixture(id types.ActorID) *types.Actor {
	return &types.Actor{ID: id}
}

func jobWithOneFragment(jobID types.JobID, fragID types.FragmentID, actorIDs ...types.ActorID) *types.TableFragments {
	tf := types.NewTableFragments(jobID)
	var actors []*types.Actor
	for _, aid := range actorIDs {
		actors = append(actors, actorFixture(aid))
		tf.ActorStatus[aid] = &types.ActorStatus{
			State:        types.ActorInactive,
			ParallelUnit: types.ParallelUnit{ID: types.ParallelUnitID(aid), WorkerID: 1},
		}
	}
	tf.Fragments[fragID] = &types.Fragment{ID: fragID, Type: types.FragmentTypeSource, Actors: actors}
	return tf
}
