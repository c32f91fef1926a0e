package shellbridge

import (
	"log/slog"
)

// Options configures the behavior of a bridge.
type Options struct {
	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger

	// Engine overrides the bundled SQLite engine.
	Engine Engine

	// Database is the SQLite database path for the bundled engine. Empty
	// means an in-memory database. Ignored when Engine is set.
	Database string

	// Seed is SQL executed during the bundled engine's bootstrap. Ignored
	// when Engine is set.
	Seed string

	// Buffer is the per-direction envelope buffer of the default pipe
	// transport. Zero means the transport default.
	Buffer int

	// ControlEndpoint and WorkerEndpoint inject a custom connected
	// endpoint pair in place of the default in-memory pipe. Both must be
	// set together.
	ControlEndpoint Endpoint
	WorkerEndpoint  Endpoint

	// OnStdout observes stdout envelopes as they arrive. One call per
	// envelope; the slice holds that envelope's full bundle of lines.
	OnStdout func(lines []string)

	// OnStderr observes stderr envelopes as they arrive.
	OnStderr func(lines []string)

	// OnStatus observes module status envelopes as they arrive.
	OnStatus func(text string)
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// logger returns the configured logger, defaulting to silent operation.
func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return NopLogger()
	}

	return o.Logger
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithEngine injects a custom engine in place of the bundled SQLite one.
// The engine must honor the Engine contract: during Load only the Status
// and Progress hooks may fire, with Stdout and Stderr reserved for Exec
// output.
func WithEngine(eng Engine) Option {
	return func(o *Options) {
		o.Engine = eng
	}
}

// WithDatabase sets the SQLite database path for the bundled engine.
// If not set, the engine runs in memory.
func WithDatabase(path string) Option {
	return func(o *Options) {
		o.Database = path
	}
}

// WithSeed sets SQL to execute during the bundled engine's bootstrap.
func WithSeed(sql string) Option {
	return func(o *Options) {
		o.Seed = sql
	}
}

// WithBuffer sets the per-direction envelope buffer of the default pipe
// transport.
func WithBuffer(size int) Option {
	return func(o *Options) {
		o.Buffer = size
	}
}

// WithEndpoints injects a connected endpoint pair in place of the default
// in-memory pipe. The control endpoint is used by the proxy, the worker
// endpoint by the worker core; envelopes sent on one must arrive on the
// other.
func WithEndpoints(control, workerEnd Endpoint) Option {
	return func(o *Options) {
		o.ControlEndpoint = control
		o.WorkerEndpoint = workerEnd
	}
}

// WithStdoutHandler observes stdout envelopes as they arrive, before the
// in-flight command completes.
func WithStdoutHandler(fn func(lines []string)) Option {
	return func(o *Options) {
		o.OnStdout = fn
	}
}

// WithStderrHandler observes stderr envelopes as they arrive.
func WithStderrHandler(fn func(lines []string)) Option {
	return func(o *Options) {
		o.OnStderr = fn
	}
}

// WithStatusHandler observes module status envelopes as they arrive,
// including load-progress text emitted during bootstrap.
func WithStatusHandler(fn func(text string)) Option {
	return func(o *Options) {
		o.OnStatus = fn
	}
}
