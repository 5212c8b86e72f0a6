// Package jobcore holds the types shared by every other package in this
// module — Job, CancellationToken, the error taxonomy, and the queue
// Capabilities descriptor. It exists as its own leaf package so that
// jobqueue, stealing, and diagnostics can depend on these types without
// creating an import cycle back through the root jobengine package, which
// in turn depends on jobqueue and stealing. The root package re-exports
// everything here under its own names, so callers never import jobcore
// directly.
package jobcore
