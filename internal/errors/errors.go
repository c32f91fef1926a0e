package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all shellbridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*EnvelopeParseError)(nil)
	_ BridgeError = (*EngineLoadError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrEngineDead indicates the engine terminated fatally and cannot
	// run further commands for the remainder of the session.
	ErrEngineDead = errors.New("engine has exited and cannot run further commands")

	// ErrEngineBusy indicates a command arrived while another was in flight.
	ErrEngineBusy = errors.New("engine is busy: concurrent execution is not permitted")

	// ErrEngineLoading indicates a command arrived before the engine
	// finished its bootstrap.
	ErrEngineLoading = errors.New("engine is still loading")

	// ErrCommandInFlight indicates a second Run was attempted before the
	// previous one completed.
	ErrCommandInFlight = errors.New("a command is already in flight")

	// ErrBridgeClosed indicates the bridge has been closed and cannot be
	// reused. Bridges are single-use; create a new one with New().
	ErrBridgeClosed = errors.New("bridge closed: bridges are single-use, create a new one with New()")

	// ErrTransportClosed indicates a send on a closed transport endpoint.
	ErrTransportClosed = errors.New("transport closed")

	// ErrUnknownEnvelopeType indicates the envelope type tag is not part of
	// the protocol vocabulary. Receivers should drop these envelopes with a
	// local diagnostic rather than treating them as fatal.
	ErrUnknownEnvelopeType = errors.New("unknown envelope type")
)

// EnvelopeParseError indicates an envelope could not be decoded from its
// wire form.
type EnvelopeParseError struct {
	RawData string
	Err     error
}

func (e *EnvelopeParseError) Error() string {
	return fmt.Sprintf("failed to parse envelope: %v", e.Err)
}

func (e *EnvelopeParseError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *EnvelopeParseError) IsBridgeError() bool { return true }

// EngineLoadError indicates the engine bootstrap failed. A failed bootstrap
// leaves the engine handle dead: there is no partially loaded state to
// recover into.
type EngineLoadError struct {
	Err error
}

func (e *EngineLoadError) Error() string {
	return fmt.Sprintf("engine bootstrap failed: %v", e.Err)
}

func (e *EngineLoadError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *EngineLoadError) IsBridgeError() bool { return true }
