// Package errors defines error types for the shellbridge protocol core.
//
// This package provides sentinel errors for the protocol's rejection
// conditions and structured error types for decode and bootstrap failures.
// All error types support error unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors
