package engine

import "fmt"

// ExitError classifies an engine fault as a terminal exit, as opposed to an
// ordinary command error. Once an Exec or Load returns (or wraps) an
// ExitError the engine is permanently unusable; recovery requires a full
// restart of the hosting process.
type ExitError struct {
	// Code is the engine's exit status. Zero means the engine terminated
	// without reporting one.
	Code int

	// Reason describes the terminal condition.
	Reason string
}

func (e *ExitError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("engine exited (code %d): %s", e.Code, e.Reason)
	}

	return fmt.Sprintf("engine exited: %s", e.Reason)
}
