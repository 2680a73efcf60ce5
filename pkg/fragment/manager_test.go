package fragment

import (
	"context"
	"errors"
	"testing"

	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RehydratesFromStore(t *testing.T) {
	store := newMemStore()
	store.rows[5] = jobWithOneFragment(5, 1, 10)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	mgr, err := NewManager(context.Background(), store, &fakeCluster{}, broker, 16)
	require.NoError(t, err)

	jobs := mgr.ListTableFragments(context.Background())
	require.Len(t, jobs, 1)
	assert.Equal(t, types.JobID(5), jobs[0].ID)
}

func TestWithWriteTxn_CommitsThenApplies(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	job := types.NewTableFragments(1)
	require.NoError(t, mgr.StartCreateTableFragments(ctx, job))

	// committed to the meta store
	assert.Contains(t, store.rows, types.JobID(1))
	// and applied to the live map
	_, err := mgr.SelectTableFragmentsByTableID(1)
	assert.NoError(t, err)
}

func TestWithWriteTxn_RollsBackOnCommitFailure(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	store.failErr = errors.New("disk full")

	job := types.NewTableFragments(1)
	err := mgr.StartCreateTableFragments(ctx, job)

	require.Error(t, err)
	var msErr *MetaStoreFailureError
	require.ErrorAs(t, err, &msErr)
	assert.ErrorIs(t, msErr, msErr.Cause)

	// live map must not have absorbed the failed write
	_, getErr := mgr.SelectTableFragmentsByTableID(1)
	assert.Error(t, getErr)
}

func TestRemoveActors_DropsOnlyNamedIDs(t *testing.T) {
	actors := []*types.Actor{{ID: 1}, {ID: 2}, {ID: 3}}
	out := removeActors(actors, map[types.ActorID]struct{}{2: {}})

	ids := make([]types.ActorID, len(out))
	for i, a := range out {
		ids[i] = a.ID
	}
	assert.Equal(t, []types.ActorID{1, 3}, ids)
}
