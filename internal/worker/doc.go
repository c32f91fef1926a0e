// Package worker implements the worker core of the bridge: the component
// that owns the engine instance and serializes every interaction with it.
//
// The worker hosts the engine handle state machine (uninitialized, loading,
// ready, dead), the busy flag guarding against concurrent execution, and
// the engine adapter that rewraps native output hooks as typed envelopes.
// All engine-side state is exclusively owned here; the control side
// observes it only through the envelope stream.
package worker
