package cli

import (
	"errors"
	"fmt"
	"io"

	shellbridge "github.com/tobgle/shellbridge"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitCommandError = 1 // at least one command produced a diagnostic
	ExitUsageError   = 2 // bad flags, unreadable config or seed file
	ExitEngineDead   = 3 // the engine exited and cannot continue
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode extracts the exit code from an error. Plain errors map to
// ExitUsageError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitUsageError
}

// printResult writes a command result the way a shell would: stdout lines
// to out, stderr lines to errOut. Statuses only surface diagnostics
// (exception reports), not routine progress.
func printResult(out, errOut io.Writer, res *shellbridge.Result) {
	for _, bundle := range res.Stdout {
		for _, line := range bundle {
			fmt.Fprintln(out, line)
		}
	}

	for _, bundle := range res.Stderr {
		for _, line := range bundle {
			fmt.Fprintln(errOut, line)
		}
	}

	for _, status := range res.Statuses {
		fmt.Fprintln(errOut, status)
	}
}
