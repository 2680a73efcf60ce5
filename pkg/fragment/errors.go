package fragment

import (
	"fmt"

	"github.com/cuemby/fragmentmgr/pkg/metrics"
	"github.com/cuemby/fragmentmgr/pkg/types"
)

// JobNotFoundError means the referenced job has no table fragments.
type JobNotFoundError struct{ JobID types.JobID }

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %d not found", e.JobID)
}

// JobExistsError means start_create was called for a job that's already
// present.
type JobExistsError struct{ JobID types.JobID }

func (e *JobExistsError) Error() string {
	return fmt.Sprintf("job %d already exists", e.JobID)
}

// FragmentNotFoundError means a referenced fragment isn't in the job it was
// expected in.
type FragmentNotFoundError struct {
	JobID      types.JobID
	FragmentID types.FragmentID
}

func (e *FragmentNotFoundError) Error() string {
	return fmt.Sprintf("fragment %d not found in job %d", e.FragmentID, e.JobID)
}

// ActorNotFoundError means a referenced actor isn't owned by any known job.
type ActorNotFoundError struct{ ActorID types.ActorID }

func (e *ActorNotFoundError) Error() string {
	return fmt.Sprintf("actor %d not found in any job", e.ActorID)
}

// IllegalStateError means an operation required the job to be in a
// different lifecycle state than it was.
type IllegalStateError struct {
	JobID    types.JobID
	Expected types.JobState
	Actual   types.JobState
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("job %d: expected state %q, got %q", e.JobID, e.Expected, e.Actual)
}

// NoCapacityError means the placement engine ran out of free parallel
// units on a target worker.
type NoCapacityError struct{ WorkerID types.WorkerID }

func (e *NoCapacityError) Error() string {
	return fmt.Sprintf("worker %d has no free parallel units", e.WorkerID)
}

// MetaStoreFailureError wraps an error returned by the underlying
// MetaStore. The in-memory store is left untouched when this is returned.
type MetaStoreFailureError struct{ Cause error }

func (e *MetaStoreFailureError) Error() string {
	return fmt.Sprintf("meta store commit failed: %v", e.Cause)
}

func (e *MetaStoreFailureError) Unwrap() error { return e.Cause }

// consistencyBug panics: it marks an assertion the caller (the barrier
// coordinator) is responsible for never violating, such as draining a
// reschedule plan that references a fragment this job doesn't have. There
// is no recovering in place; the process is expected to restart and
// rehydrate from the meta store.
func consistencyBug(format string, args ...interface{}) {
	metrics.ConsistencyBugsTotal.Inc()
	panic(fmt.Sprintf("fragment manager: consistency bug: "+format, args...))
}
