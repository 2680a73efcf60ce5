// Package metrics defines and registers the fragment manager's Prometheus
// metrics and exposes them over HTTP for scraping.
//
// Inventory gauges (JobsTotal, FragmentsTotal, ActorsTotal) are kept
// current by Collector, which polls the fragment manager's accessors on a
// timer rather than updating on every mutation. ParallelUnitsFree is
// registered but nothing in this module sets it. Operation latency
// histograms (JobCreateDuration, MigrationDuration, RescheduleApplyDuration,
// MetaStoreCommitDuration) are recorded inside the fragment manager's own
// operations with Timer, as StartCreateTableFragments does:
//
//	timer := metrics.NewTimer()
//	// ... stage and commit the new job ...
//	timer.ObserveDuration(metrics.JobCreateDuration)
//
// Handler returns the promhttp handler to mount at /metrics.
// HealthHandler, ReadyHandler and LivenessHandler expose simple JSON
// health/readiness/liveness endpoints independent of Prometheus scraping.
package metrics
