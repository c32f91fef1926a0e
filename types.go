package shellbridge

import (
	"github.com/tobgle/shellbridge/internal/engine"
	"github.com/tobgle/shellbridge/internal/envelope"
	"github.com/tobgle/shellbridge/internal/transport"
)

// Re-export types from internal packages

// ===== Envelopes =====

// Envelope represents any message exchanged over the bridge channel.
type Envelope = envelope.Envelope

// StdoutEnvelope carries standard-output text from the engine.
type StdoutEnvelope = envelope.Stdout

// StderrEnvelope carries standard-error text from the engine or a
// diagnostic from the bridge itself.
type StderrEnvelope = envelope.Stderr

// ModuleEnvelope carries load-progress or diagnostic status text.
type ModuleEnvelope = envelope.Module

// WorkingEnvelope brackets the lifetime of one accepted command.
type WorkingEnvelope = envelope.Working

// ShellExecEnvelope is the sole inbound request: run text as one command.
type ShellExecEnvelope = envelope.ShellExec

// WorkingState is the payload of a WorkingEnvelope.
type WorkingState = envelope.WorkingState

const (
	// WorkingStart opens an execution bracket.
	WorkingStart = envelope.WorkingStart
	// WorkingEnd closes an execution bracket.
	WorkingEnd = envelope.WorkingEnd
)

// ModuleKindStatus is the only kind the bridge emits for module envelopes.
const ModuleKindStatus = envelope.ModuleKindStatus

// ParseEnvelope converts a raw decoded JSON map into a typed Envelope.
var ParseEnvelope = envelope.Parse

// DecodeEnvelope parses one wire-form envelope from raw JSON bytes.
var DecodeEnvelope = envelope.Decode

// ===== Engine =====

// Engine is a single-session, synchronous command interpreter.
type Engine = engine.Engine

// EngineHooks are the output and lifecycle callbacks an engine fires.
type EngineHooks = engine.Hooks

// SQLiteConfig configures the bundled SQLite engine.
type SQLiteConfig = engine.SQLiteConfig

// NewSQLiteEngine creates the bundled SQLite engine.
var NewSQLiteEngine = engine.NewSQLite

// ===== Transport =====

// Endpoint is one end of a bidirectional envelope channel.
// Implement this to provide custom transports for testing, mocking, or
// alternative topologies; the default is an in-memory pipe.
type Endpoint = transport.Endpoint

// Pipe creates a connected pair of endpoints backed by in-memory channels.
var Pipe = transport.Pipe
