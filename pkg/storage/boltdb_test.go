package storage

import (
	"context"
	"testing"

	"github.com/cuemby/fragmentmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltMetaStore {
	t.Helper()
	store, err := NewBoltMetaStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltMetaStore_EmptyListOnFreshStore(t *testing.T) {
	store := openTestStore(t)
	rows, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBoltMetaStore_CommitThenListRoundTrips(t *testing.T) {
	store := openTestStore(t)

	tf := types.NewTableFragments(7)
	tf.State = types.JobStateCreated

	err := store.Commit(context.Background(), Batch{Puts: []PutRecord{{JobID: 7, Value: tf}}})
	require.NoError(t, err)

	rows, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.JobID(7), rows[0].ID)
	assert.Equal(t, types.JobStateCreated, rows[0].State)
}

func TestBoltMetaStore_CommitDeleteRemovesRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, Batch{Puts: []PutRecord{{JobID: 1, Value: types.NewTableFragments(1)}}}))
	require.NoError(t, store.Commit(ctx, Batch{Deletes: []DeleteRecord{{JobID: 1}}}))

	rows, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBoltMetaStore_CommitEmptyBatchIsNoop(t *testing.T) {
	store := openTestStore(t)
	err := store.Commit(context.Background(), Batch{})
	assert.NoError(t, err)
}

func TestBoltMetaStore_ListOrderingDoesNotMatterCaller(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	batch := Batch{Puts: []PutRecord{
		{JobID: 10, Value: types.NewTableFragments(10)},
		{JobID: 2, Value: types.NewTableFragments(2)},
		{JobID: 100, Value: types.NewTableFragments(100)},
	}}
	require.NoError(t, store.Commit(ctx, batch))

	rows, err := store.List(ctx)
	require.NoError(t, err)
	ids := make(map[types.JobID]bool)
	for _, r := range rows {
		ids[r.ID] = true
	}
	assert.True(t, ids[2])
	assert.True(t, ids[10])
	assert.True(t, ids[100])
}
