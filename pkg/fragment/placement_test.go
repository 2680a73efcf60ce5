package fragment

import (
	"context"
	"testing"

	"github.com/cuemby/fragmentmgr/pkg/cluster"
	"github.com/cuemby/fragmentmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateActors_MovesToFreeParallelUnitsOnTargetWorker(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	job := jobWithOneFragment(1, 10, 100, 101)
	require.NoError(t, mgr.StartCreateTableFragments(ctx, job))

	nodes := map[types.WorkerID]*cluster.WorkerNode{
		2: {WorkerID: 2, ParallelUnits: []types.ParallelUnit{{ID: 900, WorkerID: 2}, {ID: 901, WorkerID: 2}}},
	}

	result, err := mgr.MigrateActors(ctx, map[types.ActorID]types.WorkerID{100: 2, 101: 2}, nodes)
	require.NoError(t, err)

	assert.Equal(t, types.ParallelUnitID(900), result.ParallelUnitMap[types.ParallelUnitID(100)].ID)
	assert.Equal(t, types.ParallelUnitID(901), result.ParallelUnitMap[types.ParallelUnitID(101)].ID)
	assert.Empty(t, result.FreeParallelUnits[2])

	tf, err := mgr.SelectTableFragmentsByTableID(1)
	require.NoError(t, err)
	assert.Equal(t, types.WorkerID(2), tf.ActorStatus[100].ParallelUnit.WorkerID)
	assert.Equal(t, types.ParallelUnitID(900), tf.ActorStatus[100].ParallelUnit.ID)
}

func TestMigrateActors_CoLocatedActorsShareDestinationPU(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	tf := types.NewTableFragments(1)
	tf.Fragments[10] = &types.Fragment{ID: 10, Type: types.FragmentTypeSource, Actors: []*types.Actor{{ID: 100}, {ID: 101}}}
	// both actors currently share parallel unit 50
	tf.ActorStatus[100] = &types.ActorStatus{State: types.ActorRunning, ParallelUnit: types.ParallelUnit{ID: 50, WorkerID: 1}}
	tf.ActorStatus[101] = &types.ActorStatus{State: types.ActorRunning, ParallelUnit: types.ParallelUnit{ID: 50, WorkerID: 1}}
	require.NoError(t, mgr.StartCreateTableFragments(ctx, tf))

	nodes := map[types.WorkerID]*cluster.WorkerNode{
		2: {WorkerID: 2, ParallelUnits: []types.ParallelUnit{{ID: 900, WorkerID: 2}}},
	}

	_, err := mgr.MigrateActors(ctx, map[types.ActorID]types.WorkerID{100: 2, 101: 2}, nodes)
	require.NoError(t, err)

	after, err := mgr.SelectTableFragmentsByTableID(1)
	require.NoError(t, err)
	assert.Equal(t, after.ActorStatus[100].ParallelUnit.ID, after.ActorStatus[101].ParallelUnit.ID)
}

func TestMigrateActors_NoCapacityError(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	job := jobWithOneFragment(1, 10, 100)
	require.NoError(t, mgr.StartCreateTableFragments(ctx, job))

	nodes := map[types.WorkerID]*cluster.WorkerNode{2: {WorkerID: 2}}

	_, err := mgr.MigrateActors(ctx, map[types.ActorID]types.WorkerID{100: 2}, nodes)
	var noCap *NoCapacityError
	require.ErrorAs(t, err, &noCap)
}

func TestMigrateActors_UnknownActor(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.MigrateActors(context.Background(), map[types.ActorID]types.WorkerID{999: 1}, nil)
	var notFound *ActorNotFoundError
	require.ErrorAs(t, err, &notFound)
}
