package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/tobgle/shellbridge/internal/engine"
	"github.com/tobgle/shellbridge/internal/envelope"
	bridgeerrors "github.com/tobgle/shellbridge/internal/errors"
	"github.com/tobgle/shellbridge/internal/transport"
)

// State is the engine handle lifecycle. Dead is absorbing: no transition
// leaves it.
type State int32

const (
	// StateUninitialized means Start has not been called.
	StateUninitialized State = iota
	// StateLoading means the bootstrap is in progress; commands are
	// rejected with an explicit not-ready diagnostic.
	StateLoading
	// StateReady means the engine accepts exactly one command at a time.
	StateReady
	// StateDead means the engine terminated fatally. Terminal.
	StateDead
)

// String returns the lifecycle state name for logging.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Rejection diagnostics sent as stderr envelopes.
const (
	deadRejectionText    = "The SQL engine has exited and cannot run further commands. A full restart of the hosting process is required."
	busyRejectionText    = "Cannot execute a command while another is in progress: concurrent execution is not permitted."
	loadingRejectionText = "The SQL engine is still loading and cannot accept commands yet."
)

// Worker owns the engine instance and serializes all access to it.
//
// The worker accepts exactly one inbound envelope type, shellExec, and
// multiplexes everything the engine produces back over its endpoint as
// typed envelopes. It guards against concurrent execution with an atomic
// busy flag, rejects work while loading or after a fatal fault, and
// guarantees that every accepted command is bracketed by exactly one
// working:start and one working:end regardless of how the engine call
// exits.
//
// Exactly one worker is constructed per process; the engine handle state,
// busy flag, and progress ceiling are fields of that instance rather than
// globals.
type Worker struct {
	log       *slog.Logger
	ep        transport.Endpoint
	eng       engine.Engine
	ad        *adapter
	sessionID string

	state atomic.Int32
	busy  atomic.Bool

	ready     chan struct{}
	dead      chan struct{}
	readyOnce sync.Once
	deadOnce  sync.Once

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a worker that drives eng and speaks envelopes over ep.
//
// The worker stamps a fresh ULID session id into its log fields and the
// load-complete status text so interleaved sessions are distinguishable in
// logs.
func New(log *slog.Logger, ep transport.Endpoint, eng engine.Engine) *Worker {
	w := &Worker{
		ep:        ep,
		eng:       eng,
		sessionID: ulid.Make().String(),
		ready:     make(chan struct{}),
		dead:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	w.log = log.With("component", "worker", "session_id", w.sessionID)
	w.ad = newAdapter(w.log, w.send, w.markDead)

	return w
}

// SessionID returns the worker's session identifier.
func (w *Worker) SessionID() string {
	return w.sessionID
}

// State returns the engine handle lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start installs the output hooks on the engine, triggers the asynchronous
// bootstrap, and begins dispatching inbound envelopes. Hooks are bound
// before the load is triggered so no early output is lost.
func (w *Worker) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		return fmt.Errorf("worker already started (state %s)", w.State())
	}

	w.log.Info("Starting worker")

	w.eng.Bind(w.ad.hooks())

	w.wg.Add(2)
	go func() { defer w.wg.Done(); w.load(ctx) }()
	go func() { defer w.wg.Done(); w.loop(ctx) }()

	return nil
}

// Stop shuts the worker down: the dispatch loop exits, the engine is
// closed, and the outbound direction of the endpoint is closed so the
// control side sees end-of-stream. Safe to call multiple times.
func (w *Worker) Stop() {
	w.log.Debug("Stopping worker")

	w.closeOnce.Do(func() { close(w.done) })

	w.wg.Wait()

	if err := w.eng.Close(); err != nil {
		w.log.Debug("Engine close failed", "error", err)
	}

	_ = w.ep.Close()

	w.log.Info("Worker stopped")
}

// WaitReady blocks until the bootstrap completes, the engine dies, or the
// context is cancelled.
func (w *Worker) WaitReady(ctx context.Context) error {
	select {
	case <-w.ready:
		return nil
	case <-w.dead:
		return bridgeerrors.ErrEngineDead
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load runs the engine bootstrap. A bootstrap failure is terminal: there is
// no partially loaded engine to fall back to.
func (w *Worker) load(ctx context.Context) {
	w.log.Info("Loading engine")

	if err := w.eng.Load(ctx); err != nil {
		var exit *engine.ExitError
		ok := errors.As(err, &exit)
		if !ok {
			exit = &engine.ExitError{
				Reason: (&bridgeerrors.EngineLoadError{Err: err}).Error(),
			}
		}

		w.ad.reportExit(exit)

		return
	}

	if !w.state.CompareAndSwap(int32(StateLoading), int32(StateReady)) {
		// A fatal fault won the race; dead is absorbing.
		w.log.Warn("Engine loaded but handle is no longer loading", "state", w.State())

		return
	}

	w.log.Info("Engine ready")
	w.ad.OnStatus(fmt.Sprintf("SQL engine ready (session %s).", w.sessionID))

	// Closed after the ready status is emitted so a WaitReady caller
	// observes the full bootstrap envelope stream.
	w.readyOnce.Do(func() { close(w.ready) })
}

// markDead transitions the engine handle to its terminal state.
func (w *Worker) markDead(exit *engine.ExitError) {
	w.log.Error("Marking engine dead", "error", exit)

	w.state.Store(int32(StateDead))
	w.deadOnce.Do(func() { close(w.dead) })
}

// loop dispatches inbound envelopes until the endpoint closes or the
// worker stops.
func (w *Worker) loop(ctx context.Context) {
	defer w.log.Debug("Dispatch loop stopped")

	for {
		select {
		case env, ok := <-w.ep.Receive():
			if !ok {
				w.log.Debug("Inbound channel closed")

				return
			}

			w.dispatch(env)

		case <-w.done:
			return

		case <-ctx.Done():
			w.log.Debug("Context cancelled in dispatch loop")

			return
		}
	}
}

// dispatch routes one inbound envelope. Unrecognized types are dropped with
// a local diagnostic only; nothing is sent back over the channel for them.
func (w *Worker) dispatch(env envelope.Envelope) {
	switch e := env.(type) {
	case *envelope.ShellExec:
		w.Execute(e.Text)
	default:
		w.log.Warn("Dropping unrecognized inbound envelope", "envelope_type", env.EnvelopeType())
	}
}

// Execute runs one shellExec request against the engine.
//
// A dead engine rejects immediately with a single stderr envelope and no
// working bracket. Every other path is bracketed: working:start first, then
// either a rejection diagnostic (still loading, or busy) or the engine
// call, then working:end exactly once, covering the panic path.
func (w *Worker) Execute(text string) {
	if w.State() == StateDead {
		w.log.Warn("Rejecting command", "error", bridgeerrors.ErrEngineDead)
		w.send(&envelope.Stderr{Lines: []string{deadRejectionText}})

		return
	}

	w.send(&envelope.Working{State: envelope.WorkingStart})
	// Deferred before the busy-clear below so the end envelope is emitted
	// after the flag is already false.
	defer w.send(&envelope.Working{State: envelope.WorkingEnd})

	switch w.State() {
	case StateUninitialized, StateLoading:
		w.log.Warn("Rejecting command", "error", bridgeerrors.ErrEngineLoading, "state", w.State())
		w.send(&envelope.Stderr{Lines: []string{loadingRejectionText}})

		return
	case StateDead:
		// The bootstrap failed between the entry check and here.
		w.send(&envelope.Stderr{Lines: []string{deadRejectionText}})

		return
	case StateReady:
	}

	if !w.busy.CompareAndSwap(false, true) {
		w.log.Warn("Rejecting command", "error", bridgeerrors.ErrEngineBusy)
		w.send(&envelope.Stderr{Lines: []string{busyRejectionText}})

		return
	}

	defer w.busy.Store(false)

	w.runCommand(text)
}

// runCommand invokes the engine and converts faults to envelopes. Nothing
// escapes to the dispatch loop: the channel has no mechanism to carry a
// thrown fault, only data.
func (w *Worker) runCommand(text string) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Engine call panicked", "panic", r)
			w.ad.OnStatus(fmt.Sprintf("Exception: %v", r))
		}
	}()

	w.log.Debug("Invoking engine", "command_len", len(text))

	if err := w.eng.Exec(text); err != nil {
		w.ad.fault(err)
	}
}

// send publishes one envelope on the outbound direction. Sends are
// fire-and-forget; a closed transport only produces a local diagnostic.
func (w *Worker) send(env envelope.Envelope) {
	if err := w.ep.Send(context.Background(), env); err != nil {
		w.log.Debug("Dropping outbound envelope", "envelope_type", env.EnvelopeType(), "error", err)
	}
}
