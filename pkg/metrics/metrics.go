package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job/fragment inventory metrics
	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fragmentmgr_jobs_total",
			Help: "Total number of jobs by lifecycle state",
		},
		[]string{"state"},
	)

	FragmentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fragmentmgr_fragments_total",
			Help: "Total number of fragments by type",
		},
		[]string{"type"},
	)

	ActorsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fragmentmgr_actors_total",
			Help: "Total number of actors by lifecycle state",
		},
		[]string{"state"},
	)

	ParallelUnitsFree = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fragmentmgr_parallel_units_free",
			Help: "Free parallel units available for placement, by worker",
		},
		[]string{"worker_id"},
	)

	// Meta store metrics
	MetaStoreCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fragmentmgr_meta_store_commits_total",
			Help: "Total number of meta store commits by outcome",
		},
		[]string{"outcome"},
	)

	MetaStoreCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fragmentmgr_meta_store_commit_duration_seconds",
			Help:    "Time taken to commit a batch to the meta store in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Lifecycle operation metrics
	JobCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fragmentmgr_job_create_duration_seconds",
			Help:    "Time taken to commit a job's table fragments on creation",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobDropDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fragmentmgr_job_drop_duration_seconds",
			Help:    "Time taken to drop a batch of jobs",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_jobs_created_total",
			Help: "Total number of jobs successfully created",
		},
	)

	JobsCanceledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_jobs_canceled_total",
			Help: "Total number of jobs canceled before creation finished",
		},
	)

	JobsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_jobs_dropped_total",
			Help: "Total number of jobs dropped",
		},
	)

	// Placement and migration metrics
	MigrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fragmentmgr_migration_duration_seconds",
			Help:    "Time taken to migrate a batch of actors to new parallel units",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActorsMigratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_actors_migrated_total",
			Help: "Total number of actors migrated to a different parallel unit",
		},
	)

	PlacementNoCapacityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fragmentmgr_placement_no_capacity_total",
			Help: "Total number of placement attempts that failed for lack of free parallel units, by worker",
		},
		[]string{"worker_id"},
	)

	// Reschedule engine metrics
	RescheduleApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fragmentmgr_reschedule_apply_duration_seconds",
			Help:    "Time taken to commit a batch of reschedule plans",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReschedulesAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_reschedules_applied_total",
			Help: "Total number of reschedule plan batches committed",
		},
	)

	ReschedulesCanceledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_reschedules_canceled_total",
			Help: "Total number of in-flight reschedules canceled before a barrier confirmed them",
		},
	)

	ConsistencyBugsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_consistency_bugs_total",
			Help: "Total number of fatal consistency-bug assertions tripped before this process restarted",
		},
	)

	// Notification broker metrics
	NotificationsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fragmentmgr_notifications_published_total",
			Help: "Total number of vnode mapping notifications published by operation",
		},
		[]string{"operation"},
	)

	NotificationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fragmentmgr_notifications_dropped_total",
			Help: "Total number of notifications dropped because a subscriber's channel was full",
		},
	)

	NotificationSubscribersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fragmentmgr_notification_subscribers_active",
			Help: "Current number of active notification subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(FragmentsTotal)
	prometheus.MustRegister(ActorsTotal)
	prometheus.MustRegister(ParallelUnitsFree)

	prometheus.MustRegister(MetaStoreCommitsTotal)
	prometheus.MustRegister(MetaStoreCommitDuration)

	prometheus.MustRegister(JobCreateDuration)
	prometheus.MustRegister(JobDropDuration)
	prometheus.MustRegister(JobsCreatedTotal)
	prometheus.MustRegister(JobsCanceledTotal)
	prometheus.MustRegister(JobsDroppedTotal)

	prometheus.MustRegister(MigrationDuration)
	prometheus.MustRegister(ActorsMigratedTotal)
	prometheus.MustRegister(PlacementNoCapacityTotal)

	prometheus.MustRegister(RescheduleApplyDuration)
	prometheus.MustRegister(ReschedulesAppliedTotal)
	prometheus.MustRegister(ReschedulesCanceledTotal)
	prometheus.MustRegister(ConsistencyBugsTotal)

	prometheus.MustRegister(NotificationsPublishedTotal)
	prometheus.MustRegister(NotificationsDroppedTotal)
	prometheus.MustRegister(NotificationSubscribersActive)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
