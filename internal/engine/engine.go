package engine

import "context"

// Hooks are the output and lifecycle callbacks an engine fires while
// loading and while executing a command. All hooks fire synchronously on
// the goroutine that called Load or Exec; the engine never retains them
// past Close.
//
// Stdout and Stderr receive every part of one native output call in a
// single invocation. Downstream consumers must preserve that bundling: one
// hook call is one envelope, however many lines it carries.
type Hooks struct {
	// Stdout receives standard-output text.
	Stdout func(parts ...string)

	// Stderr receives standard-error text.
	Stderr func(parts ...string)

	// Status receives human-readable lifecycle status text.
	Status func(text string)

	// Progress receives the number of bootstrap work units still
	// remaining. The true total may not be known at the first report, so
	// consumers must track the running maximum themselves.
	Progress func(unitsRemaining int)
}

// Engine is a single-session, synchronous command interpreter.
//
// An engine runs exactly one command at a time and holds exactly one
// session; callers are responsible for never invoking Exec concurrently or
// reentrantly. Output is emitted through the bound Hooks, not returned.
type Engine interface {
	// Bind installs the output hooks. It must be called before Load and
	// must not be called again afterwards.
	Bind(h Hooks)

	// Load performs the bootstrap sequence, reporting progress through the
	// bound hooks. Only the Status and Progress hooks may fire during Load;
	// Stdout and Stderr are reserved for Exec output, and the control side
	// reads error output arriving outside a command's working bracket as a
	// dead-engine refusal. The engine accepts no commands until Load
	// returns nil.
	Load(ctx context.Context) error

	// Exec runs one command to completion, emitting output through the
	// bound hooks. A nil return means the engine is still usable, even if
	// the command itself failed (such failures go to the Stderr hook). A
	// returned *ExitError means the engine terminated and will never run
	// another command; any other error is a non-fatal engine fault.
	Exec(text string) error

	// Close releases the engine's resources. After Close, Exec returns
	// *ExitError.
	Close() error
}

// nilHook keeps hook call sites unconditional.
func nilHook(...string) {}

// normalize fills in no-op callbacks for any hook left nil.
func (h Hooks) normalize() Hooks {
	if h.Stdout == nil {
		h.Stdout = nilHook
	}

	if h.Stderr == nil {
		h.Stderr = nilHook
	}

	if h.Status == nil {
		h.Status = func(string) {}
	}

	if h.Progress == nil {
		h.Progress = func(int) {}
	}

	return h
}
