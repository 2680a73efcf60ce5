package fragment

import (
	"context"
	"sort"
	"strconv"

	"github.com/cuemby/fragmentmgr/pkg/cluster"
	"github.com/cuemby/fragmentmgr/pkg/events"
	"github.com/cuemby/fragmentmgr/pkg/metrics"
	"github.com/cuemby/fragmentmgr/pkg/storage"
	"github.com/cuemby/fragmentmgr/pkg/types"
)

// MigrationResult reports how a migration was carried out: the old-to-new
// parallel unit substitution actually applied, and which parallel units of
// each worker in nodes were left unclaimed.
type MigrationResult struct {
	ParallelUnitMap   map[types.ParallelUnitID]types.ParallelUnit
	FreeParallelUnits map[types.WorkerID][]types.ParallelUnit
}

// MigrateActors moves the actors named in migrate (actor id -> destination
// worker) onto free parallel units of that worker, drawn from nodes. Actors
// that already shared a source parallel unit keep sharing a destination
// one, so a fragment's internal co-location invariant survives the move.
// Every affected job's vnode mappings are rewritten and republished.
func (m *Manager) MigrateActors(ctx context.Context, migrate map[types.ActorID]types.WorkerID, nodes map[types.WorkerID]*cluster.WorkerNode) (*MigrationResult, error) {
	timer := metrics.NewTimer()
	result := &MigrationResult{}

	err := m.withWriteTxn(ctx, func(txn *storage.Txn) ([]events.VNodeMappingNotification, error) {
		freePUs := make(map[types.WorkerID][]types.ParallelUnit, len(nodes))
		for wid, wn := range nodes {
			freePUs[wid] = append([]types.ParallelUnit(nil), wn.ParallelUnits...)
		}

		puMap := make(map[types.ParallelUnitID]types.ParallelUnit)
		mutated := make(map[types.JobID]*types.TableFragments)
		touchedJobs := make(map[types.JobID]struct{})

		actorIDs := make([]types.ActorID, 0, len(migrate))
		for id := range migrate {
			actorIDs = append(actorIDs, id)
		}
		sort.Slice(actorIDs, func(i, j int) bool { return actorIDs[i] < actorIDs[j] })

		for _, aid := range actorIDs {
			targetWorker := migrate[aid]

			jobID, ok := findJobOwningActor(txn, aid)
			if !ok {
				return nil, &ActorNotFoundError{ActorID: aid}
			}

			job, ok := mutated[jobID]
			if !ok {
				job, _ = txn.GetMut(jobID)
				mutated[jobID] = job
			}

			st := job.ActorStatus[aid]
			if st == nil {
				return nil, &ActorNotFoundError{ActorID: aid}
			}
			oldPU := st.ParallelUnit.ID

			newPU, ok := puMap[oldPU]
			if !ok {
				pool := freePUs[targetWorker]
				if len(pool) == 0 {
					metrics.PlacementNoCapacityTotal.WithLabelValues(strconv.FormatUint(uint64(targetWorker), 10)).Inc()
					return nil, &NoCapacityError{WorkerID: targetWorker}
				}
				newPU, pool = pool[0], pool[1:]
				freePUs[targetWorker] = pool
				puMap[oldPU] = newPU
			}

			st.ParallelUnit = newPU
			touchedJobs[jobID] = struct{}{}
		}

		jobIDs := make([]types.JobID, 0, len(touchedJobs))
		for id := range touchedJobs {
			jobIDs = append(jobIDs, id)
		}
		sort.Slice(jobIDs, func(i, j int) bool { return jobIDs[i] < jobIDs[j] })

		sub := make(map[types.ParallelUnitID]types.ParallelUnitID, len(puMap))
		for oldID, pu := range puMap {
			sub[oldID] = pu.ID
		}

		var notes []events.VNodeMappingNotification
		for _, jid := range jobIDs {
			job := mutated[jid]
			job.UpdateVNodeMapping(sub)
			notes = append(notes, vnodeNotificationsFor(job, events.OperationUpdate)...)
		}

		result.ParallelUnitMap = puMap
		result.FreeParallelUnits = freePUs
		return notes, nil
	})
	if err != nil {
		return nil, err
	}
	timer.ObserveDuration(metrics.MigrationDuration)
	metrics.ActorsMigratedTotal.Add(float64(len(migrate)))
	return result, nil
}
