// Package envelope defines the typed message vocabulary of the bridge
// channel.
//
// An Envelope is the sole unit of exchange between the control side and the
// worker core: a closed tagged union with one variant per protocol message.
// Dispatch is a type switch over the union, so every variant is handled
// deliberately; tags outside the vocabulary surface as
// ErrUnknownEnvelopeType at the parse boundary.
package envelope
