package cluster

import (
	"context"
	"sort"

	"github.com/cuemby/fragmentmgr/pkg/types"
)

// StaticManager is a cluster.Manager backed by a fixed worker inventory
// loaded once at startup. Real worker registration/heartbeating lives
// outside this module; this exists so the daemon has something to place
// actors onto without one.
type StaticManager struct {
	nodes map[types.WorkerID]*WorkerNode
}

// WorkerSpec is one worker's declared capacity, as read from config.
type WorkerSpec struct {
	WorkerID          types.WorkerID `yaml:"workerId"`
	ParallelUnitCount uint32         `yaml:"parallelUnits"`
}

// NewStaticManager builds a StaticManager from a list of worker specs,
// assigning parallel unit ids sequentially starting at 1 so they're unique
// across the whole cluster.
func NewStaticManager(specs []WorkerSpec) *StaticManager {
	ordered := append([]WorkerSpec(nil), specs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].WorkerID < ordered[j].WorkerID })

	nodes := make(map[types.WorkerID]*WorkerNode, len(ordered))
	nextPU := types.ParallelUnitID(1)
	for _, spec := range ordered {
		wn := &WorkerNode{WorkerID: spec.WorkerID}
		for i := uint32(0); i < spec.ParallelUnitCount; i++ {
			wn.ParallelUnits = append(wn.ParallelUnits, types.ParallelUnit{ID: nextPU, WorkerID: spec.WorkerID})
			nextPU++
		}
		nodes[spec.WorkerID] = wn
	}
	return &StaticManager{nodes: nodes}
}

// Nodes returns the static worker inventory.
func (m *StaticManager) Nodes(ctx context.Context) (map[types.WorkerID]*WorkerNode, error) {
	return m.nodes, nil
}
