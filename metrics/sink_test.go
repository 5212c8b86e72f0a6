package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameBuildsPoolPrefixedMetric(t *testing.T) {
	assert.Equal(t, "pool.ingest.jobs.submitted", Name("ingest", JobsSubmitted))
}

func TestNopSinkNeverPanics(t *testing.T) {
	var s NopSink
	assert.NotPanics(t, func() {
		s.Counter("x", 1, nil)
		s.Gauge("x", 1, nil)
		s.Histogram("x", 1, nil)
	})
}

type recordingSink struct {
	counters []string
}

func (r *recordingSink) Counter(name string, delta float64, labels map[string]string) {
	r.counters = append(r.counters, name)
}
func (r *recordingSink) Gauge(string, float64, map[string]string)     {}
func (r *recordingSink) Histogram(string, float64, map[string]string) {}

func TestRegistryFansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	reg := NewRegistry(a, b)
	reg.Counter("jobs.submitted", 1, nil)
	assert.Equal(t, []string{"jobs.submitted"}, a.counters)
	assert.Equal(t, []string{"jobs.submitted"}, b.counters)
}
