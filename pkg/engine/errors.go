package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/3leaps/gobatch/pkg/cmdline"
	"github.com/3leaps/gobatch/pkg/runlog"
)

// Failure codes reported per job.
const (
	FailureProcess      = "PROCESS_FAILURE"
	FailureIO           = "IO_FAILURE"
	FailureUnrecognized = "UNRECOGNIZED_COMMAND"
	FailureTimeout      = "TIMEOUT"
	FailureCancelled    = "CANCELLED"
	FailureInternal     = "INTERNAL"
)

// ErrJobTimeout is returned when a job exceeds Config.JobTimeout.
var ErrJobTimeout = errors.New("job timed out")

// JobError reports the failure of one job in a batch.
type JobError struct {
	Ordinal int
	Command string
	Code    string
	Err     error
}

func newJobError(job Job, err error) *JobError {
	return &JobError{Ordinal: job.Ordinal, Command: job.Command, Code: classifyFailure(err), Err: err}
}

func (e *JobError) Error() string {
	return fmt.Sprintf("task %d: %s: %v", e.Ordinal, e.Code, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Reason is the human-readable failure cause.
func (e *JobError) Reason() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Err.Error()
}

func classifyFailure(err error) string {
	var procErr *ProcessError
	var writeErr *runlog.WriteError
	switch {
	case errors.Is(err, ErrJobTimeout):
		return FailureTimeout
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled
	case errors.Is(err, cmdline.ErrUnrecognizedCommand):
		return FailureUnrecognized
	case errors.As(err, &writeErr):
		return FailureIO
	case errors.As(err, &procErr):
		return FailureProcess
	default:
		return FailureInternal
	}
}

func asProcessError(err error) (*ProcessError, bool) {
	var procErr *ProcessError
	ok := errors.As(err, &procErr)
	return procErr, ok
}

// BatchError is returned by RunAll when one or more jobs failed. Every
// *JobError is reachable through errors.As.
type BatchError struct {
	Total     int
	Succeeded int
	Failures  []*JobError

	err error
}

func newBatchError(s *Summary) *BatchError {
	var combined error
	for _, f := range s.Failures {
		combined = multierr.Append(combined, f)
	}
	return &BatchError{Total: s.Total, Succeeded: s.Succeeded, Failures: s.Failures, err: combined}
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d jobs failed", len(e.Failures), e.Total)
	if len(e.Failures) > 0 {
		fmt.Fprintf(&b, " (first: %v)", e.Failures[0])
	}
	return b.String()
}

func (e *BatchError) Unwrap() []error {
	return multierr.Errors(e.err)
}
