// Package transport provides the bidirectional envelope channel connecting
// the control side to the worker core.
//
// The only transport is an in-memory pipe between two goroutine contexts:
// no shared memory, no polling endpoint. Each direction preserves send
// order; nothing else is guaranteed across directions. The Endpoint
// interface is small on purpose so tests can substitute a capturing
// implementation.
package transport
