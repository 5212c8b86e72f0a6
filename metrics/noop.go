package metrics

// NopSink discards every observation. Used in tests and by any pool built
// without a metrics sink.
type NopSink struct{}

func (NopSink) Counter(string, float64, map[string]string)   {}
func (NopSink) Gauge(string, float64, map[string]string)     {}
func (NopSink) Histogram(string, float64, map[string]string) {}

// Registry fan-out observes against every registered sink with one call,
// generalizing the single-sink contract the way the original's
// metric_registry.h does (spec §6 only fixes the shape of one sink's
// contract, not that there can be only one).
type Registry struct {
	sinks []Sink
}

// NewRegistry returns a Registry fanning out to the given sinks in order.
func NewRegistry(sinks ...Sink) *Registry {
	return &Registry{sinks: sinks}
}

func (r *Registry) Counter(name string, delta float64, labels map[string]string) {
	for _, s := range r.sinks {
		s.Counter(name, delta, labels)
	}
}

func (r *Registry) Gauge(name string, value float64, labels map[string]string) {
	for _, s := range r.sinks {
		s.Gauge(name, value, labels)
	}
}

func (r *Registry) Histogram(name string, value float64, labels map[string]string) {
	for _, s := range r.sinks {
		s.Histogram(name, value, labels)
	}
}
