package models

import "time"

// ErrorKind classifies why a task failed.
type ErrorKind string

const (
	// ErrorKindInvocation indicates the invoker returned an error after all retries.
	ErrorKindInvocation ErrorKind = "invocation_error"
	// ErrorKindTimeout indicates the final attempt exceeded the task timeout.
	ErrorKindTimeout ErrorKind = "timeout_error"
	// ErrorKindBreakerOpen indicates the task was skipped because its category's
	// circuit breaker was open.
	ErrorKindBreakerOpen ErrorKind = "breaker_open"
	// ErrorKindBudgetExceeded indicates the task was skipped because the cost
	// budget was exhausted.
	ErrorKindBudgetExceeded ErrorKind = "budget_exceeded"
	// ErrorKindBlockedByDependency indicates the task was skipped because one of
	// its dependencies did not complete successfully.
	ErrorKindBlockedByDependency ErrorKind = "blocked_by_dependency"
)

// Valid returns true if the error kind is a known value.
func (k ErrorKind) Valid() bool {
	switch k {
	case ErrorKindInvocation, ErrorKindTimeout, ErrorKindBreakerOpen,
		ErrorKindBudgetExceeded, ErrorKindBlockedByDependency:
		return true
	default:
		return false
	}
}

// Retryable returns true if the kind represents a per-attempt failure that the
// dispatch path retries. Skip kinds (breaker, budget, blocked) are never retried.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindInvocation || k == ErrorKindTimeout
}

// TaskResult records the outcome of one task in one run.
// It is written exactly once by the orchestrator and read by later stages as
// dependency context, and by the synthesis step.
type TaskResult struct {
	// TaskID is the ID of the task this result belongs to.
	TaskID string `json:"task_id"`
	// Success indicates the task produced a usable output.
	Success bool `json:"success"`
	// Output is the result payload on success.
	Output string `json:"output,omitempty"`
	// Error describes the failure, if any.
	Error string `json:"error,omitempty"`
	// ErrorKind classifies the failure, if any.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// Attempts is the number of execution attempts made (0 for skipped tasks).
	Attempts int `json:"attempts"`
	// Cost is the dollar cost reported by the invoker.
	Cost float64 `json:"cost"`
	// Tokens is the token count reported by the invoker.
	Tokens int64 `json:"tokens"`
	// Duration is the wall-clock time spent executing the task.
	Duration time.Duration `json:"duration"`
	// Cached indicates the result was served from the result cache.
	Cached bool `json:"cached,omitempty"`
}

// RunStatus is the overall outcome of an orchestrated run.
type RunStatus string

const (
	// RunCompleted indicates every task succeeded.
	RunCompleted RunStatus = "completed"
	// RunPartial indicates some tasks succeeded and some failed or were skipped.
	RunPartial RunStatus = "partial"
	// RunFailed indicates no task succeeded.
	RunFailed RunStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunCompleted, RunPartial, RunFailed:
		return true
	default:
		return false
	}
}
