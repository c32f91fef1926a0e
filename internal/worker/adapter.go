package worker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tobgle/shellbridge/internal/engine"
	"github.com/tobgle/shellbridge/internal/envelope"
)

// emitFunc is the capability the adapter uses to publish envelopes. The
// adapter never holds a transport reference directly; tests supply a
// capturing sink instead.
type emitFunc func(envelope.Envelope)

// adapter translates the engine's native output and lifecycle hooks into
// the envelope vocabulary. It is owned by, and only reachable through, the
// worker core.
type adapter struct {
	log   *slog.Logger
	emit  emitFunc
	fatal func(*engine.ExitError)

	// maxUnits is the running maximum of reported remaining work units.
	// The true total may not be known at the first report, so the derived
	// "completed/total" fraction always uses this ceiling as denominator.
	// Only the bootstrap goroutine touches it; bootstrap happens once per
	// process lifetime and is never reset.
	maxUnits int
}

func newAdapter(log *slog.Logger, emit emitFunc, fatal func(*engine.ExitError)) *adapter {
	return &adapter{
		log:   log.With("component", "engine_adapter"),
		emit:  emit,
		fatal: fatal,
	}
}

// hooks returns the hook set to install on the engine before load.
func (a *adapter) hooks() engine.Hooks {
	return engine.Hooks{
		Stdout:   a.OnStdout,
		Stderr:   a.OnStderr,
		Status:   a.OnStatus,
		Progress: a.OnProgress,
	}
}

// OnStdout wraps one native output call as one stdout envelope. The parts
// of a single call stay bundled; the adapter does not split them.
func (a *adapter) OnStdout(parts ...string) {
	a.emit(&envelope.Stdout{Lines: parts})
}

// OnStderr wraps one native error-output call as one stderr envelope, with
// the same bundling behavior as OnStdout.
func (a *adapter) OnStderr(parts ...string) {
	a.emit(&envelope.Stderr{Lines: parts})
}

// OnStatus wraps status text as a module envelope.
func (a *adapter) OnStatus(text string) {
	a.emit(&envelope.Module{Kind: envelope.ModuleKindStatus, Text: text})
}

// OnProgress raises the running-maximum work ceiling and derives the
// human-readable load status.
func (a *adapter) OnProgress(unitsRemaining int) {
	if unitsRemaining > a.maxUnits {
		a.maxUnits = unitsRemaining
	}

	if unitsRemaining == 0 {
		a.OnStatus("All downloads complete.")

		return
	}

	a.OnStatus(fmt.Sprintf("Preparing... (%d/%d)", a.maxUnits-unitsRemaining, a.maxUnits))
}

// fault routes an engine fault by classification. An exit condition kills
// the engine handle irreversibly and is surfaced on both stderr and the
// status stream; any other fault emits only the best-effort status
// diagnostic and leaves the handle usable.
func (a *adapter) fault(err error) {
	var exit *engine.ExitError
	if ok := errors.As(err, &exit); ok {
		a.reportExit(exit)

		return
	}

	a.log.Warn("Non-fatal engine fault", "error", err)
	a.OnStatus("Exception: " + err.Error())
}

// reportExit marks the engine handle dead and emits the final fatal
// envelopes: the stderr description with the restart remedy, then the
// status note.
func (a *adapter) reportExit(exit *engine.ExitError) {
	a.log.Error("Fatal engine fault", "error", exit)

	a.fatal(exit)

	a.emit(&envelope.Stderr{Lines: []string{
		fmt.Sprintf("Fatal: %v.", exit),
		"The engine cannot recover; a full restart of the hosting process is required.",
	}})
	a.OnStatus("Exception: " + exit.Error())
}
