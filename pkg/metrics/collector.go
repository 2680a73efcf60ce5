package metrics

import (
	"context"
	"time"

	"github.com/cuemby/fragmentmgr/pkg/types"
)

// FragmentInventory is the read-only slice of *fragment.Manager the
// collector needs. Declared here, rather than importing pkg/fragment
// directly, because pkg/fragment itself imports this package to record
// operation metrics — a direct dependency would cycle.
type FragmentInventory interface {
	ListTableFragments(ctx context.Context) []*types.TableFragments
}

// Collector periodically samples the fragment manager's in-memory state
// into the inventory gauges, rather than updating them inline on every
// mutation: accessors.go already pays one lock acquisition per poll, and
// inventory gauges don't need update-time precision.
type Collector struct {
	mgr    FragmentInventory
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(mgr FragmentInventory) *Collector {
	return &Collector{
		mgr:    mgr,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	jobs := c.mgr.ListTableFragments(context.Background())

	jobCounts := make(map[types.JobState]int)
	fragmentCounts := make(map[types.FragmentType]int)
	actorCounts := make(map[types.ActorLifecycleState]int)

	for _, job := range jobs {
		jobCounts[job.State]++
		for _, f := range job.Fragments {
			fragmentCounts[f.Type]++
		}
		for _, st := range job.ActorStatus {
			actorCounts[st.State]++
		}
	}

	for state, count := range jobCounts {
		JobsTotal.WithLabelValues(string(state)).Set(float64(count))
	}
	for ftype, count := range fragmentCounts {
		FragmentsTotal.WithLabelValues(string(ftype)).Set(float64(count))
	}
	for state, count := range actorCounts {
		ActorsTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}
