// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

const (
	// ExitOK is a successful run.
	ExitOK ExitCode = 0
	// ExitFailure is a fatal error: bad config, unreadable catalog or a
	// failed lifecycle step.
	ExitFailure ExitCode = 1
	// ExitDiagnostics means the run finished but reported problems that the
	// command was asked to treat as failures (--strict, validate).
	ExitDiagnostics ExitCode = 2
)

type (
	// ExitCode is the process exit status.
	ExitCode int

	// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
	ExitError struct {
		Code ExitCode
		Err  error
	}
)

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
