package diagnostics

import "math"

// Verdict is the bottleneck analyser's diagnosis for one snapshot.
type Verdict int

const (
	NoBottleneck Verdict = iota
	QueueFull
	SlowConsumer
	WorkerStarvation
	UnevenDistribution
)

func (v Verdict) String() string {
	switch v {
	case QueueFull:
		return "QueueFull"
	case SlowConsumer:
		return "SlowConsumer"
	case WorkerStarvation:
		return "WorkerStarvation"
	case UnevenDistribution:
		return "UnevenDistribution"
	default:
		return "NoBottleneck"
	}
}

// Snapshot is the bottleneck analyser's input: a point-in-time read of pool
// load, independent of any particular queue implementation.
type Snapshot struct {
	// QueueSaturation is a queue-load fraction in [0, 1]. Pool computes it
	// as depth/256 clamped to 1, or 0.5 for a non-empty queue whose size is
	// only a hint.
	QueueSaturation float64
	// AvgWaitMs is the average time recently-dequeued jobs spent waiting.
	AvgWaitMs float64
	// Utilization is the fraction of workers currently Active.
	Utilization float64
	// WorkerUtilization is each worker's individual busy fraction, used to
	// detect an uneven distribution of work across the pool.
	WorkerUtilization []float64
}

// Thresholds configures the bottleneck analyser's verdict boundaries.
type Thresholds struct {
	QueueSaturation  float64
	AvgWaitMs        float64
	HighUtilization  float64
	StarvationUtil   float64
	StarvationSat    float64
	UnevenVariance   float64
}

// DefaultThresholds mirrors the boundaries named in spec.md §4.11.
func DefaultThresholds() Thresholds {
	return Thresholds{
		QueueSaturation: 0.9,
		AvgWaitMs:       250,
		HighUtilization: 0.9,
		StarvationUtil:  0.95,
		StarvationSat:   0.5,
		UnevenVariance:  0.05,
	}
}

// Report is the analyser's output: a verdict plus a 0-3 severity. Severity
// is 0 when there is no bottleneck; otherwise it is 3 when the larger of
// saturation and utilization is at least 0.99, 2 when it is at least 0.95,
// and 1 below that. The configured thresholds do not affect severity.
type Report struct {
	Verdict  Verdict
	Severity int
}

// Analyse derives a verdict from a snapshot using the four rules in
// spec.md §4.11, checked in the same precedence order the spec lists them.
func Analyse(snap Snapshot, th Thresholds) Report {
	var verdict Verdict
	switch {
	case snap.QueueSaturation > th.QueueSaturation:
		verdict = QueueFull
	case snap.AvgWaitMs > th.AvgWaitMs && snap.Utilization > th.HighUtilization:
		verdict = SlowConsumer
	case snap.Utilization > th.StarvationUtil && snap.QueueSaturation > th.StarvationSat:
		verdict = WorkerStarvation
	case variance(snap.WorkerUtilization) > th.UnevenVariance:
		verdict = UnevenDistribution
	default:
		verdict = NoBottleneck
	}
	return Report{Verdict: verdict, Severity: severity(verdict, snap, th)}
}

func severity(v Verdict, snap Snapshot, th Thresholds) int {
	if v == NoBottleneck {
		return 0
	}
	worst := math.Max(snap.QueueSaturation, snap.Utilization)
	switch {
	case worst >= 0.99:
		return 3
	case worst >= 0.95:
		return 2
	default:
		return 1
	}
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return sq / float64(len(xs))
}
