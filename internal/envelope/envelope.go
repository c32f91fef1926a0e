package envelope

import "encoding/json"

// Envelope type constants. These tags form the closed vocabulary of the
// bridge protocol: four outbound (worker to control) types and one inbound
// (control to worker) type.
const (
	TypeStdout    = "stdout"
	TypeStderr    = "stderr"
	TypeModule    = "module"
	TypeWorking   = "working"
	TypeShellExec = "shellExec"
)

// Envelope represents any message exchanged over the bridge channel.
// Use type assertion or type switch to determine the concrete type.
type Envelope interface {
	EnvelopeType() string
}

// Compile-time verification that all envelope types implement Envelope.
var (
	_ Envelope = (*Stdout)(nil)
	_ Envelope = (*Stderr)(nil)
	_ Envelope = (*Module)(nil)
	_ Envelope = (*Working)(nil)
	_ Envelope = (*ShellExec)(nil)
)

// Stdout carries standard-output text from the engine. Lines holds every
// value passed to one native output call: a single envelope may bundle
// multiple logical lines, and consumers must not assume one line per
// envelope.
type Stdout struct {
	Lines []string
}

// EnvelopeType implements the Envelope interface.
func (e *Stdout) EnvelopeType() string { return TypeStdout }

// Stderr carries standard-error text from the engine or a diagnostic from
// the bridge itself (busy, not-ready, and dead-engine rejections). The same
// bundling rule as Stdout applies.
type Stderr struct {
	Lines []string
}

// EnvelopeType implements the Envelope interface.
func (e *Stderr) EnvelopeType() string { return TypeStderr }

// ModuleKindStatus is the only Kind the bridge emits for Module envelopes.
const ModuleKindStatus = "status"

// Module carries load-progress or diagnostic status text.
type Module struct {
	Kind string
	Text string
}

// EnvelopeType implements the Envelope interface.
func (e *Module) EnvelopeType() string { return TypeModule }

// WorkingState is the payload of a Working envelope.
type WorkingState string

const (
	// WorkingStart opens an execution bracket.
	WorkingStart WorkingState = "start"
	// WorkingEnd closes an execution bracket.
	WorkingEnd WorkingState = "end"
)

// Working brackets the lifetime of one accepted command: exactly one
// "start" before any output the command causes, exactly one "end" after,
// even when the engine call fails.
type Working struct {
	State WorkingState
}

// EnvelopeType implements the Envelope interface.
func (e *Working) EnvelopeType() string { return TypeWorking }

// ShellExec is the sole inbound request: run Text as one engine command.
// It carries no correlation identifier; requests and the events they
// provoke correlate through the at-most-one-in-flight invariant.
type ShellExec struct {
	Text string
}

// EnvelopeType implements the Envelope interface.
func (e *ShellExec) EnvelopeType() string { return TypeShellExec }

// wireEnvelope is the JSON form shared by every envelope: a type tag plus a
// tag-dependent data payload.
type wireEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// moduleData is the wire payload of a Module envelope.
type moduleData struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// MarshalJSON implements json.Marshaler.
func (e *Stdout) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{Type: TypeStdout, Data: e.Lines})
}

// MarshalJSON implements json.Marshaler.
func (e *Stderr) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{Type: TypeStderr, Data: e.Lines})
}

// MarshalJSON implements json.Marshaler.
func (e *Module) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{Type: TypeModule, Data: moduleData{Kind: e.Kind, Text: e.Text}})
}

// MarshalJSON implements json.Marshaler.
func (e *Working) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{Type: TypeWorking, Data: string(e.State)})
}

// MarshalJSON implements json.Marshaler.
func (e *ShellExec) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{Type: TypeShellExec, Data: e.Text})
}
