package jobengine

import (
	"time"

	"github.com/go-foundations/jobengine/diagnostics"
	"github.com/go-foundations/jobengine/logging"
	"github.com/go-foundations/jobengine/metrics"
)

// WorkerPolicy controls one worker's participation in work-stealing and
// its local deque sizing.
type WorkerPolicy struct {
	EnableStealing     bool
	LocalDequeCapacity int
}

// DefaultWorkerPolicy enables stealing with a modestly sized local deque.
func DefaultWorkerPolicy() WorkerPolicy {
	return WorkerPolicy{EnableStealing: true, LocalDequeCapacity: 256}
}

// Config is a Pool's construction-time configuration. It is fixed once New
// returns, so workers read it from their pool without taking a lock (spec
// §9 "mutex-protected config read in the hot path" redesign note).
type Config struct {
	Title string

	// SpinIterations bounds the hybrid wait's initial busy-spin phase;
	// SpinSleep is how long it then sleeps before looping back to try
	// every job source again.
	SpinIterations int
	SpinSleep      time.Duration

	// StealMaxAttempts bounds how many victims a worker tries per steal
	// call before giving up and falling through to the hybrid wait.
	StealMaxAttempts int

	MetricsSink metrics.Sink
	LoggingSink logging.Sink

	EventRingCapacity int
	Thresholds        diagnostics.Thresholds
}

// DefaultConfig returns sane defaults for a pool titled title.
func DefaultConfig(title string) Config {
	return Config{
		Title:             title,
		SpinIterations:    16,
		SpinSleep:         10 * time.Millisecond,
		StealMaxAttempts:  4,
		MetricsSink:       metrics.NopSink{},
		LoggingSink:       logging.NopSink{},
		EventRingCapacity: 1024,
		Thresholds:        diagnostics.DefaultThresholds(),
	}
}

// clamp fills in zero-value fields with defaults, the way the teacher's
// NewWithConfig clamps NumWorkers/BufferSize/Timeout.
func (c Config) clamp() Config {
	if c.SpinIterations <= 0 {
		c.SpinIterations = 16
	}
	if c.SpinSleep <= 0 {
		c.SpinSleep = 10 * time.Millisecond
	}
	if c.StealMaxAttempts <= 0 {
		c.StealMaxAttempts = 4
	}
	if c.MetricsSink == nil {
		c.MetricsSink = metrics.NopSink{}
	}
	if c.LoggingSink == nil {
		c.LoggingSink = logging.NopSink{}
	}
	if c.EventRingCapacity <= 0 {
		c.EventRingCapacity = 1024
	}
	return c
}
