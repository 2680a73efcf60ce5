package storage

import (
	"testing"

	"github.com/cuemby/fragmentmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseFixture() map[types.JobID]*types.TableFragments {
	return map[types.JobID]*types.TableFragments{
		1: types.NewTableFragments(1),
		2: types.NewTableFragments(2),
	}
}

func TestTxn_GetReflectsBaseUntouched(t *testing.T) {
	txn := NewTxn(baseFixture())

	v, ok := txn.Get(1)
	require.True(t, ok)
	assert.Equal(t, types.JobID(1), v.ID)

	_, ok = txn.Get(99)
	assert.False(t, ok)
}

func TestTxn_GetMutClonesAndStages(t *testing.T) {
	base := baseFixture()
	txn := NewTxn(base)

	mut, ok := txn.GetMut(1)
	require.True(t, ok)
	mut.State = types.JobStateCreated

	// base is untouched
	assert.Equal(t, types.JobStateCreating, base[1].State)

	// subsequent Get within the txn sees the staged edit
	v, ok := txn.Get(1)
	require.True(t, ok)
	assert.Equal(t, types.JobStateCreated, v.State)
}

func TestTxn_GetMutComposesAcrossRepeatedCalls(t *testing.T) {
	txn := NewTxn(baseFixture())

	first, _ := txn.GetMut(1)
	first.State = types.JobStateCreated

	second, _ := txn.GetMut(1)
	assert.Equal(t, types.JobStateCreated, second.State, "second GetMut should clone the first stage, not the original base")
}

func TestTxn_InsertNewJob(t *testing.T) {
	txn := NewTxn(baseFixture())

	txn.Insert(3, types.NewTableFragments(3))

	v, ok := txn.Get(3)
	require.True(t, ok)
	assert.Equal(t, types.JobID(3), v.ID)

	assert.Contains(t, txn.IDs(), types.JobID(3))
}

func TestTxn_RemoveHidesFromGetAndIDs(t *testing.T) {
	txn := NewTxn(baseFixture())

	txn.Remove(1)

	_, ok := txn.Get(1)
	assert.False(t, ok)
	assert.NotContains(t, txn.IDs(), types.JobID(1))
}

func TestTxn_IDsSortedAndDeduplicated(t *testing.T) {
	txn := NewTxn(baseFixture())
	txn.Insert(5, types.NewTableFragments(5))
	txn.GetMut(2)

	ids := txn.IDs()
	assert.Equal(t, []types.JobID{1, 2, 5}, ids)
}

func TestTxn_BatchOrdersPutsAndDeletesByJobID(t *testing.T) {
	txn := NewTxn(baseFixture())
	txn.Remove(1)
	txn.Insert(5, types.NewTableFragments(5))
	txn.Insert(3, types.NewTableFragments(3))

	batch := txn.Batch()
	require.Len(t, batch.Deletes, 1)
	assert.Equal(t, types.JobID(1), batch.Deletes[0].JobID)

	require.Len(t, batch.Puts, 2)
	assert.Equal(t, types.JobID(3), batch.Puts[0].JobID)
	assert.Equal(t, types.JobID(5), batch.Puts[1].JobID)
}

func TestTxn_BatchEmptyWhenNoEdits(t *testing.T) {
	txn := NewTxn(baseFixture())
	assert.True(t, txn.Batch().Empty())
}

func TestBatch_Empty(t *testing.T) {
	assert.True(t, Batch{}.Empty())
	assert.False(t, Batch{Puts: []PutRecord{{JobID: 1}}}.Empty())
	assert.False(t, Batch{Deletes: []DeleteRecord{{JobID: 1}}}.Empty())
}
