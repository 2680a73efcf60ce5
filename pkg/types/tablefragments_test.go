package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fragmentFixture(id FragmentID, typ FragmentType, actors ...*Actor) *Fragment {
	return &Fragment{ID: id, Type: typ, Actors: actors}
}

func buildJob() *TableFragments {
	tf := NewTableFragments(1)
	upstream := JobID(99)

	tf.Fragments[1] = fragmentFixture(1, FragmentTypeSource, &Actor{ID: 10}, &Actor{ID: 11})
	tf.Fragments[2] = fragmentFixture(2, FragmentTypeChain, &Actor{ID: 20})
	tf.Fragments[2].UpstreamJobID = &upstream
	tf.Fragments[3] = fragmentFixture(3, FragmentTypeSink, &Actor{ID: 30}, &Actor{ID: 31})

	tf.ActorStatus[10] = &ActorStatus{State: ActorRunning, ParallelUnit: ParallelUnit{ID: 1, WorkerID: 1}}
	tf.ActorStatus[11] = &ActorStatus{State: ActorInactive, ParallelUnit: ParallelUnit{ID: 2, WorkerID: 1}}
	tf.ActorStatus[20] = &ActorStatus{State: ActorRunning, ParallelUnit: ParallelUnit{ID: 3, WorkerID: 2}}
	tf.ActorStatus[30] = &ActorStatus{State: ActorRunning, ParallelUnit: ParallelUnit{ID: 4, WorkerID: 2}}
	tf.ActorStatus[31] = &ActorStatus{State: ActorRunning, ParallelUnit: ParallelUnit{ID: 5, WorkerID: 3}}

	return tf
}

func TestFragmentIDs_Sorted(t *testing.T) {
	tf := buildJob()
	assert.Equal(t, []FragmentID{1, 2, 3}, tf.FragmentIDs())
}

func TestActorIDs_Sorted(t *testing.T) {
	tf := buildJob()
	assert.Equal(t, []ActorID{10, 11, 20, 30, 31}, tf.ActorIDs())
}

func TestChainActorIDs(t *testing.T) {
	tf := buildJob()
	assert.Equal(t, []ActorID{20}, tf.ChainActorIDs())
}

func TestSinkActorIDs(t *testing.T) {
	tf := buildJob()
	assert.Equal(t, []ActorID{30, 31}, tf.SinkActorIDs())
}

func TestWorkerActorStates_ExcludesInactiveByDefault(t *testing.T) {
	tf := buildJob()
	states := tf.WorkerActorStates(false)

	assert.Len(t, states[1], 1)
	assert.Equal(t, ActorID(10), states[1][0].ActorID)
	assert.NotContains(t, statesActorIDs(states[1]), ActorID(11))
}

func TestWorkerActorStates_IncludesInactiveWhenRequested(t *testing.T) {
	tf := buildJob()
	states := tf.WorkerActorStates(true)
	assert.Len(t, states[1], 2)
}

func TestWorkerSourceActorStates_FiltersToSourceFragments(t *testing.T) {
	tf := buildJob()
	states := tf.WorkerSourceActorStates(true)
	assert.Contains(t, statesActorIDs(states[1]), ActorID(10))
	assert.Contains(t, statesActorIDs(states[1]), ActorID(11))
	assert.NotContains(t, statesActorIDs(states[2]), ActorID(20))
}

func TestWorkerActorIDs_DropsState(t *testing.T) {
	tf := buildJob()
	ids := tf.WorkerActorIDs(true)
	assert.ElementsMatch(t, []ActorID{10, 11}, ids[1])
}

func TestDependentTableIDs_FromChainFragments(t *testing.T) {
	tf := buildJob()
	deps := tf.DependentTableIDs()
	assert.Contains(t, deps, JobID(99))
	assert.Len(t, deps, 1)
}

func TestStateTableIDs_DeduplicatedAndSorted(t *testing.T) {
	tf := buildJob()
	tf.Fragments[1].StateTableIDs = []TableID{5, 2}
	tf.Fragments[2].StateTableIDs = []TableID{2, 8}

	assert.Equal(t, []TableID{2, 5, 8}, tf.StateTableIDs())
}

func TestUpdateActorsState_BulkSetsEveryActor(t *testing.T) {
	tf := buildJob()
	tf.UpdateActorsState(ActorInactive)
	for _, st := range tf.ActorStatus {
		assert.Equal(t, ActorInactive, st.State)
	}
}

func TestSetActorSplitsBySplitAssignment_ReplacesWholesale(t *testing.T) {
	tf := buildJob()
	tf.ActorSplits[10] = []SourceSplit{{SplitID: "stale"}}

	tf.SetActorSplitsBySplitAssignment(map[ActorID][]SourceSplit{
		20: {{SplitID: "fresh"}},
	})

	assert.NotContains(t, tf.ActorSplits, ActorID(10))
	assert.Equal(t, "fresh", tf.ActorSplits[20][0].SplitID)
}

func TestSinkVNodeBitmapInfo_UsesLowestIDSinkFragment(t *testing.T) {
	tf := buildJob()
	bitmap := NewVNodeBitmap(4)
	tf.Fragments[3].Actors[0].VNodeBitmap = bitmap

	out := tf.SinkVNodeBitmapInfo()
	assert.Same(t, bitmap, out[30])
	assert.NotContains(t, out, ActorID(31))
}

func TestSinkActorParallelUnits(t *testing.T) {
	tf := buildJob()
	units := tf.SinkActorParallelUnits()
	assert.Equal(t, ParallelUnitID(4), units[30].ID)
	assert.Equal(t, ParallelUnitID(5), units[31].ID)
}

func TestSinkVNodeMapping_NilWhenNoSinkFragment(t *testing.T) {
	tf := NewTableFragments(2)
	tf.Fragments[1] = fragmentFixture(1, FragmentTypeSource)
	assert.Nil(t, tf.SinkVNodeMapping())
}

func statesActorIDs(states []ActorIDState) []ActorID {
	ids := make([]ActorID, len(states))
	for i, s := range states {
		ids[i] = s.ActorID
	}
	return ids
}
