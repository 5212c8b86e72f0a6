package jobcore

import (
	"errors"
	"fmt"
)

// Code identifies a stable error category from the engine's error taxonomy.
type Code string

const (
	CodeInvalidArgument     Code = "InvalidArgument"
	CodeNotStarted          Code = "NotStarted"
	CodeAlreadyStarted      Code = "AlreadyStarted"
	CodeQueueStopped        Code = "QueueStopped"
	CodeQueueEmpty          Code = "QueueEmpty"
	CodeQueueFull           Code = "QueueFull"
	CodeResourceUnavailable Code = "ResourceUnavailable"
	CodeJobInvalid          Code = "JobInvalid"
	CodeJobExecutionFailed  Code = "JobExecutionFailed"
	CodeCancelled           Code = "Cancelled"
	CodeNotImplemented      Code = "NotImplemented"
)

// Error is the engine's error type. Every error the engine returns either
// is an *Error or wraps one, so callers can branch with errors.As.
type Error struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Cause)
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrQueueStopped) etc. work against sentinels
// constructed with the same code.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func wrapError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// Sentinel errors for errors.Is comparisons against well-known categories.
var (
	ErrInvalidArgument     = newError(CodeInvalidArgument, "invalid argument")
	ErrNotStarted          = newError(CodeNotStarted, "pool is not started")
	ErrAlreadyStarted      = newError(CodeAlreadyStarted, "pool is already started")
	ErrQueueStopped        = newError(CodeQueueStopped, "queue has been stopped")
	ErrQueueEmpty          = newError(CodeQueueEmpty, "queue is empty")
	ErrQueueFull           = newError(CodeQueueFull, "queue is full")
	ErrResourceUnavailable = newError(CodeResourceUnavailable, "resource unavailable")
	ErrJobInvalid          = newError(CodeJobInvalid, "job is invalid")
	ErrCancelled           = newError(CodeCancelled, "cancelled")
	ErrNotImplemented      = newError(CodeNotImplemented, "not implemented")
)

// JobExecutionFailed wraps a job's own error under the stable
// JobExecutionFailed code, preserving the original cause for errors.As/Unwrap.
func JobExecutionFailed(cause error) *Error {
	return wrapError(CodeJobExecutionFailed, "job run failed", cause)
}
