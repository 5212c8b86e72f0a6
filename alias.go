package jobengine

import "github.com/go-foundations/jobengine/jobcore"

// Job, CancellationToken, the error taxonomy, and Capabilities live in
// jobcore so that jobqueue/stealing/diagnostics can use them without an
// import cycle back to this package. They're aliased here so callers only
// ever need to import "github.com/go-foundations/jobengine".
type (
	Job                = jobcore.Job
	FuncJob             = jobcore.FuncJob
	CancellationToken   = jobcore.CancellationToken
	Error                = jobcore.Error
	Code                 = jobcore.Code
	Capabilities         = jobcore.Capabilities
)

var (
	NewFuncJob           = jobcore.NewFuncJob
	NewCancellationToken = jobcore.NewCancellationToken
	NextJobID            = jobcore.NextJobID
	JobExecutionFailed   = jobcore.JobExecutionFailed
)

const (
	CodeInvalidArgument     = jobcore.CodeInvalidArgument
	CodeNotStarted          = jobcore.CodeNotStarted
	CodeAlreadyStarted      = jobcore.CodeAlreadyStarted
	CodeQueueStopped        = jobcore.CodeQueueStopped
	CodeQueueEmpty          = jobcore.CodeQueueEmpty
	CodeQueueFull           = jobcore.CodeQueueFull
	CodeResourceUnavailable = jobcore.CodeResourceUnavailable
	CodeJobInvalid          = jobcore.CodeJobInvalid
	CodeJobExecutionFailed  = jobcore.CodeJobExecutionFailed
	CodeCancelled           = jobcore.CodeCancelled
	CodeNotImplemented      = jobcore.CodeNotImplemented
)

var (
	ErrInvalidArgument     = jobcore.ErrInvalidArgument
	ErrNotStarted          = jobcore.ErrNotStarted
	ErrAlreadyStarted      = jobcore.ErrAlreadyStarted
	ErrQueueStopped        = jobcore.ErrQueueStopped
	ErrQueueEmpty          = jobcore.ErrQueueEmpty
	ErrQueueFull           = jobcore.ErrQueueFull
	ErrResourceUnavailable = jobcore.ErrResourceUnavailable
	ErrJobInvalid          = jobcore.ErrJobInvalid
	ErrCancelled           = jobcore.ErrCancelled
	ErrNotImplemented      = jobcore.ErrNotImplemented
)
