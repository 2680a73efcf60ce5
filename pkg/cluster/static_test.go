package cluster

import (
	"context"
	"testing"

	"github.com/cuemby/fragmentmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaticManager_AssignsUniqueParallelUnitIDs(t *testing.T) {
	specs := []WorkerSpec{
		{WorkerID: 2, ParallelUnitCount: 3},
		{WorkerID: 1, ParallelUnitCount: 2},
	}

	mgr := NewStaticManager(specs)
	nodes, err := mgr.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	seen := make(map[types.ParallelUnitID]bool)
	for _, wn := range nodes {
		for _, pu := range wn.ParallelUnits {
			assert.False(t, seen[pu.ID], "duplicate parallel unit id %d", pu.ID)
			seen[pu.ID] = true
			assert.Equal(t, wn.WorkerID, pu.WorkerID)
		}
	}
	assert.Len(t, seen, 5)
}

func TestNewStaticManager_AssignsIDsInWorkerOrder(t *testing.T) {
	specs := []WorkerSpec{
		{WorkerID: 2, ParallelUnitCount: 1},
		{WorkerID: 1, ParallelUnitCount: 1},
	}

	mgr := NewStaticManager(specs)
	nodes, err := mgr.Nodes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ParallelUnitID(1), nodes[1].ParallelUnits[0].ID)
	assert.Equal(t, types.ParallelUnitID(2), nodes[2].ParallelUnits[0].ID)
}

func TestNewStaticManager_EmptySpecs(t *testing.T) {
	mgr := NewStaticManager(nil)
	nodes, err := mgr.Nodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestNewStaticManager_ZeroCapacityWorker(t *testing.T) {
	mgr := NewStaticManager([]WorkerSpec{{WorkerID: 1, ParallelUnitCount: 0}})
	nodes, err := mgr.Nodes(context.Background())
	require.NoError(t, err)
	require.Contains(t, nodes, types.WorkerID(1))
	assert.Empty(t, nodes[1].ParallelUnits)
}
