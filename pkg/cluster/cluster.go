// Package cluster declares the fragment manager's only external
// collaborator: the inventory of workers and parallel units it places
// actors onto. Nothing in this module owns cluster membership; only the
// interface and the data shapes it exchanges live here.
package cluster

import (
	"context"

	"github.com/cuemby/fragmentmgr/pkg/types"
)

// WorkerNode is one worker's current inventory of parallel units.
type WorkerNode struct {
	WorkerID      types.WorkerID
	ParallelUnits []types.ParallelUnit
}

// Manager supplies the live worker/parallel-unit inventory of the cluster.
// Its implementation (heartbeats, worker registration, capacity accounting)
// lives outside this module. fragment.Manager holds one, but its placement
// engine takes the worker inventory as an argument to MigrateActors rather
// than calling Nodes.
type Manager interface {
	// Nodes returns the current worker inventory, keyed by worker id.
	Nodes(ctx context.Context) (map[types.WorkerID]*WorkerNode, error)
}
