package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ProcessResult is the captured outcome of one external process.
type ProcessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ProcessRunner runs one external process to completion.
//
// Implementations must be safe for concurrent use. A non-nil error means
// the job failed; the result may still carry captured output.
type ProcessRunner interface {
	Run(ctx context.Context, argv []string) (*ProcessResult, error)
}

// ProcessError reports a process that could not be launched or exited
// non-zero. ExitCode is -1 when the process never produced an exit status.
type ProcessError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with status %d", e.Path, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ExecRunner runs processes with os/exec. Standard input is the null
// device; stdout and stderr are captured separately.
type ExecRunner struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// Run implements ProcessRunner.
func (r ExecRunner) Run(ctx context.Context, argv []string) (*ProcessResult, error) {
	if len(argv) == 0 {
		return nil, &ProcessError{ExitCode: -1, Err: errors.New("empty argument vector")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ProcessResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}
	return res, &ProcessError{Path: argv[0], ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
}
