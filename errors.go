package shellbridge

import (
	"github.com/tobgle/shellbridge/internal/engine"
	"github.com/tobgle/shellbridge/internal/errors"
)

// Re-export error types from internal packages

// BridgeError is the base interface for all shellbridge errors.
type BridgeError = errors.BridgeError

// EnvelopeParseError indicates an envelope could not be decoded from its
// wire form.
type EnvelopeParseError = errors.EnvelopeParseError

// EngineLoadError indicates the engine bootstrap failed.
type EngineLoadError = errors.EngineLoadError

// ExitError classifies an engine fault as a terminal exit condition.
type ExitError = engine.ExitError

// Re-export sentinel errors from internal package.
var (
	// ErrEngineDead indicates the engine terminated fatally and cannot run
	// further commands for the remainder of the session.
	ErrEngineDead = errors.ErrEngineDead

	// ErrEngineBusy indicates a command arrived while another was in flight.
	ErrEngineBusy = errors.ErrEngineBusy

	// ErrEngineLoading indicates a command arrived before the engine
	// finished its bootstrap.
	ErrEngineLoading = errors.ErrEngineLoading

	// ErrCommandInFlight indicates a second Run was attempted before the
	// previous one completed.
	ErrCommandInFlight = errors.ErrCommandInFlight

	// ErrBridgeClosed indicates the bridge has been closed and cannot be
	// reused.
	ErrBridgeClosed = errors.ErrBridgeClosed

	// ErrTransportClosed indicates a send on a closed transport endpoint.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrUnknownEnvelopeType indicates an envelope type tag outside the
	// protocol vocabulary.
	ErrUnknownEnvelopeType = errors.ErrUnknownEnvelopeType
)
