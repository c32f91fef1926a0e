// Package engine defines the command-interpreter contract the worker core
// drives, and provides the bundled SQLite implementation.
//
// An Engine is opaque to the rest of the bridge: one narrow synchronous
// call per command, output via callback hooks, and a typed ExitError for
// the terminal-fault classification. The worker core never inspects engine
// internals; everything it knows arrives through the hooks or the Exec
// error.
package engine
