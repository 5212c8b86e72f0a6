// Package metrics provides a pluggable metrics facade: components emit
// counter/gauge/histogram observations against a Sink interface without
// knowing or caring which backend eventually renders them.
package metrics

import "fmt"

// Sink receives metric observations keyed by name and an optional label
// set. Implementations must be safe for concurrent use.
type Sink interface {
	Counter(name string, delta float64, labels map[string]string)
	Gauge(name string, value float64, labels map[string]string)
	Histogram(name string, value float64, labels map[string]string)
}

// Well-known metric names, per spec.md §6, before the "pool.<title>."
// prefix Name applies.
const (
	JobsSubmitted = "jobs.submitted"
	JobsCompleted = "jobs.completed"
	JobsFailed    = "jobs.failed"
	JobsRejected  = "jobs.rejected"
	JobsCancelled = "jobs.cancelled"

	QueueDepth          = "queue.depth"
	QueueWaitTimeSeconds = "queue.wait_time_seconds"

	WorkersActive          = "workers.active"
	WorkersIdle            = "workers.idle"
	WorkersTotal           = "workers.total"
	WorkersBusyTimeSeconds = "workers.busy_time_seconds"

	JobDurationSeconds = "job.duration_seconds"
)

// Name builds the fully-qualified "pool.<title>.<metric>" name a Sink call
// should use, matching spec.md §6's naming scheme.
func Name(title, metric string) string {
	return fmt.Sprintf("pool.%s.%s", title, metric)
}
