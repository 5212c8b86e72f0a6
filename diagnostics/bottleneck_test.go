package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyseQueueFull(t *testing.T) {
	th := DefaultThresholds()
	r := Analyse(Snapshot{QueueSaturation: 0.95}, th)
	assert.Equal(t, QueueFull, r.Verdict)
}

func TestAnalyseSlowConsumer(t *testing.T) {
	th := DefaultThresholds()
	r := Analyse(Snapshot{QueueSaturation: 0.2, AvgWaitMs: 500, Utilization: 0.95}, th)
	assert.Equal(t, SlowConsumer, r.Verdict)
}

func TestAnalyseWorkerStarvation(t *testing.T) {
	th := DefaultThresholds()
	r := Analyse(Snapshot{QueueSaturation: 0.6, Utilization: 0.97}, th)
	assert.Equal(t, WorkerStarvation, r.Verdict)
}

func TestAnalyseUnevenDistribution(t *testing.T) {
	th := DefaultThresholds()
	r := Analyse(Snapshot{WorkerUtilization: []float64{0.05, 0.95, 0.1, 0.9}}, th)
	assert.Equal(t, UnevenDistribution, r.Verdict)
}

func TestAnalyseNoBottleneckWhenNothingCrossesThreshold(t *testing.T) {
	th := DefaultThresholds()
	r := Analyse(Snapshot{QueueSaturation: 0.1, AvgWaitMs: 5, Utilization: 0.3, WorkerUtilization: []float64{0.3, 0.31, 0.29}}, th)
	assert.Equal(t, NoBottleneck, r.Verdict)
	assert.Equal(t, 0, r.Severity)
}

func TestAnalysePrecedenceQueueFullBeatsEverythingElse(t *testing.T) {
	th := DefaultThresholds()
	r := Analyse(Snapshot{QueueSaturation: 0.95, AvgWaitMs: 1000, Utilization: 0.99, WorkerUtilization: []float64{0, 1}}, th)
	assert.Equal(t, QueueFull, r.Verdict)
}
