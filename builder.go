package jobengine

import (
	"github.com/go-foundations/jobengine/jobqueue"
	"github.com/go-foundations/jobengine/logging"
	"github.com/go-foundations/jobengine/metrics"
)

// Builder is a fluent pool constructor, supplementing the plain New/Option
// surface with a pool_factory-style chain: NewBuilder(title).Workers(n,
// policy).Queue(q).Metrics(sink).Build().
type Builder struct {
	title   string
	opts    []Option
	workers []WorkerPolicy
}

// NewBuilder starts a fluent build for a pool titled title.
func NewBuilder(title string) *Builder {
	return &Builder{title: title}
}

// Workers queues n workers under policy to be added once Build runs.
func (b *Builder) Workers(n int, policy WorkerPolicy) *Builder {
	for i := 0; i < n; i++ {
		b.workers = append(b.workers, policy)
	}
	return b
}

// Queue overrides the pool's shared queue.
func (b *Builder) Queue(q jobqueue.Queue) *Builder {
	b.opts = append(b.opts, WithQueue(q))
	return b
}

// Metrics sets the pool's metrics sink.
func (b *Builder) Metrics(sink metrics.Sink) *Builder {
	b.opts = append(b.opts, WithMetrics(sink))
	return b
}

// Logging sets the pool's logging sink.
func (b *Builder) Logging(sink logging.Sink) *Builder {
	b.opts = append(b.opts, WithLogging(sink))
	return b
}

// Config overrides the pool's Config entirely.
func (b *Builder) Config(cfg Config) *Builder {
	b.opts = append(b.opts, WithConfig(cfg))
	return b
}

// Build constructs the Pool and adds every queued worker. The caller
// still calls Start.
func (b *Builder) Build() *Pool {
	p := New(b.title, b.opts...)
	for _, policy := range b.workers {
		p.AddWorker(policy)
	}
	return p
}
