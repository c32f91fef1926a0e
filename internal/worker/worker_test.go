package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tobgle/shellbridge/internal/engine"
	"github.com/tobgle/shellbridge/internal/envelope"
	bridgeerrors "github.com/tobgle/shellbridge/internal/errors"
	"github.com/tobgle/shellbridge/internal/transport"
)

// fakeEngine is a scriptable engine for worker tests.
type fakeEngine struct {
	mu    sync.Mutex
	hooks engine.Hooks
	calls []string

	loadErr   error
	holdLoad  chan struct{} // when set, Load blocks until closed
	execFn    func(h engine.Hooks, text string) error
	execEnter chan struct{} // when set, closed on first Exec entry
	holdExec  chan struct{} // when set, Exec blocks until closed
}

func (f *fakeEngine) Bind(h engine.Hooks) { f.hooks = h }

func (f *fakeEngine) Load(ctx context.Context) error {
	if f.holdLoad != nil {
		select {
		case <-f.holdLoad:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return f.loadErr
}

func (f *fakeEngine) Exec(text string) error {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	entered := len(f.calls) == 1
	f.mu.Unlock()

	if entered && f.execEnter != nil {
		close(f.execEnter)
	}

	if f.holdExec != nil {
		<-f.holdExec
	}

	if f.execFn != nil {
		return f.execFn(f.hooks, text)
	}

	return nil
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

// captureEndpoint records everything the worker sends. Its receive side is
// driven manually by tests.
type captureEndpoint struct {
	mu   sync.Mutex
	sent []envelope.Envelope
	in   chan envelope.Envelope
}

func newCaptureEndpoint() *captureEndpoint {
	return &captureEndpoint{in: make(chan envelope.Envelope, 16)}
}

func (c *captureEndpoint) Send(_ context.Context, env envelope.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, env)

	return nil
}

func (c *captureEndpoint) Receive() <-chan envelope.Envelope { return c.in }

func (c *captureEndpoint) Close() error { return nil }

func (c *captureEndpoint) snapshot() []envelope.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]envelope.Envelope(nil), c.sent...)
}

// typesSince lists envelope type tags recorded from index start on.
func (c *captureEndpoint) typesSince(start int) []string {
	var types []string

	for _, env := range c.snapshot()[start:] {
		types = append(types, env.EnvelopeType())
	}

	return types
}

func startReadyWorker(t *testing.T, eng *fakeEngine) (*Worker, *captureEndpoint) {
	t.Helper()

	ep := newCaptureEndpoint()
	w := New(slog.Default(), ep, eng)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)

	require.NoError(t, w.WaitReady(ctx))

	return w, ep
}

func TestWorkerBracketing(t *testing.T) {
	eng := &fakeEngine{
		execFn: func(h engine.Hooks, _ string) error {
			h.Stdout("1")

			return nil
		},
	}

	w, ep := startReadyWorker(t, eng)

	mark := len(ep.snapshot())
	w.Execute("SELECT 1;")

	require.Equal(t, []string{"working", "stdout", "working"}, ep.typesSince(mark))

	envs := ep.snapshot()[mark:]
	require.Equal(t, envelope.WorkingStart, envs[0].(*envelope.Working).State)
	require.Equal(t, envelope.WorkingEnd, envs[2].(*envelope.Working).State)
}

func TestWorkerMutualExclusion(t *testing.T) {
	eng := &fakeEngine{
		execEnter: make(chan struct{}),
		holdExec:  make(chan struct{}),
	}

	w, ep := startReadyWorker(t, eng)

	mark := len(ep.snapshot())

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		w.Execute("SELECT slow;")
	}()

	<-eng.execEnter

	// Concurrent requests while the engine is running: each produces one
	// stderr rejection and no engine call.
	for n := 0; n < 3; n++ {
		w.Execute("SELECT rushed;")
	}

	close(eng.holdExec)
	wg.Wait()

	require.Equal(t, 1, eng.callCount(), "exactly one request may reach the engine")

	var rejections int

	for _, env := range ep.snapshot()[mark:] {
		if stderr, ok := env.(*envelope.Stderr); ok {
			require.Contains(t, stderr.Lines[0], "concurrent execution is not permitted")

			rejections++
		}
	}

	require.Equal(t, 3, rejections)
}

func TestWorkerRejectedCommandIsStillBracketed(t *testing.T) {
	eng := &fakeEngine{
		execEnter: make(chan struct{}),
		holdExec:  make(chan struct{}),
	}

	w, ep := startReadyWorker(t, eng)

	go w.Execute("SELECT slow;")
	<-eng.execEnter

	mark := len(ep.snapshot())
	w.Execute("SELECT rushed;")

	require.Equal(t, []string{"working", "stderr", "working"}, ep.typesSince(mark))

	close(eng.holdExec)
}

func TestWorkerFatalFaultSequence(t *testing.T) {
	eng := &fakeEngine{
		execFn: func(_ engine.Hooks, _ string) error {
			return &engine.ExitError{Code: 11, Reason: "database disk image is malformed"}
		},
	}

	w, ep := startReadyWorker(t, eng)

	mark := len(ep.snapshot())
	w.Execute("bogus")

	require.Equal(t, []string{"working", "stderr", "module", "working"}, ep.typesSince(mark))
	require.Equal(t, StateDead, w.State())
}

func TestWorkerDeadStateIsAbsorbing(t *testing.T) {
	eng := &fakeEngine{
		execFn: func(_ engine.Hooks, _ string) error {
			return &engine.ExitError{Reason: "handle closed"}
		},
	}

	w, ep := startReadyWorker(t, eng)

	w.Execute("bogus")
	require.Equal(t, StateDead, w.State())

	calls := eng.callCount()

	// Every subsequent request: one stderr rejection, no working bracket,
	// no engine call.
	for n := 0; n < 3; n++ {
		mark := len(ep.snapshot())
		w.Execute("SELECT 1;")

		require.Equal(t, []string{"stderr"}, ep.typesSince(mark))
	}

	require.Equal(t, calls, eng.callCount())
}

func TestWorkerNonFatalFaultKeepsEngineUsable(t *testing.T) {
	first := true
	eng := &fakeEngine{
		execFn: func(_ engine.Hooks, _ string) error {
			if first {
				first = false

				return errors.New("interrupted")
			}

			return nil
		},
	}

	w, ep := startReadyWorker(t, eng)

	mark := len(ep.snapshot())
	w.Execute("SELECT 1;")

	require.Equal(t, []string{"working", "module", "working"}, ep.typesSince(mark))
	require.Equal(t, StateReady, w.State())

	w.Execute("SELECT 2;")
	require.Equal(t, 2, eng.callCount())
}

func TestWorkerPanicStillFinalizes(t *testing.T) {
	eng := &fakeEngine{
		execFn: func(_ engine.Hooks, _ string) error {
			panic("interpreter blew up")
		},
	}

	w, ep := startReadyWorker(t, eng)

	mark := len(ep.snapshot())
	w.Execute("SELECT 1;")

	require.Equal(t, []string{"working", "module", "working"}, ep.typesSince(mark))

	// The busy flag was cleared on the panic path; the worker is usable.
	eng.execFn = nil

	w.Execute("SELECT 2;")
	require.Equal(t, 2, eng.callCount())
}

func TestWorkerRejectsCommandsWhileLoading(t *testing.T) {
	eng := &fakeEngine{holdLoad: make(chan struct{})}

	ep := newCaptureEndpoint()
	w := New(slog.Default(), ep, eng)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Start(ctx))

	defer w.Stop()

	mark := len(ep.snapshot())
	w.Execute("SELECT 1;")

	require.Equal(t, []string{"working", "stderr", "working"}, ep.typesSince(mark))
	require.Equal(t, 0, eng.callCount())

	stderr := ep.snapshot()[mark+1].(*envelope.Stderr)
	require.Contains(t, stderr.Lines[0], "still loading")

	close(eng.holdLoad)
	require.NoError(t, w.WaitReady(ctx))
}

func TestWorkerLoadFailureIsFatal(t *testing.T) {
	eng := &fakeEngine{loadErr: errors.New("seed: syntax error")}

	ep := newCaptureEndpoint()
	w := New(slog.Default(), ep, eng)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Start(ctx))

	defer w.Stop()

	require.ErrorIs(t, w.WaitReady(ctx), bridgeerrors.ErrEngineDead)
	require.Equal(t, StateDead, w.State())

	mark := len(ep.snapshot())
	w.Execute("SELECT 1;")

	require.Equal(t, []string{"stderr"}, ep.typesSince(mark))
}

// unknownEnvelope is an out-of-vocabulary inbound type.
type unknownEnvelope struct{}

func (unknownEnvelope) EnvelopeType() string { return "telemetry" }

func TestWorkerDropsUnrecognizedEnvelopes(t *testing.T) {
	eng := &fakeEngine{}

	w, ep := startReadyWorker(t, eng)

	mark := len(ep.snapshot())
	w.dispatch(unknownEnvelope{})

	require.Empty(t, ep.typesSince(mark), "unrecognized envelopes must produce no channel traffic")
	require.Equal(t, 0, eng.callCount())
}

func TestWorkerDispatchOverEndpoint(t *testing.T) {
	eng := &fakeEngine{
		execFn: func(h engine.Hooks, text string) error {
			h.Stdout("ran: " + text)

			return nil
		},
	}

	log := slog.Default()
	control, workerEnd := transport.Pipe(log, 16)

	w := New(log, workerEnd, eng)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Start(ctx))

	defer w.Stop()

	require.NoError(t, w.WaitReady(ctx))
	require.NoError(t, control.Send(ctx, &envelope.ShellExec{Text: "SELECT 1;"}))

	var got []string

	deadline := time.After(5 * time.Second)

	for {
		select {
		case env := <-control.Receive():
			got = append(got, env.EnvelopeType())

			if working, ok := env.(*envelope.Working); ok && working.State == envelope.WorkingEnd {
				// Everything after the start bracket, in emission order.
				start := -1

				for i, tag := range got {
					if tag == envelope.TypeWorking {
						start = i

						break
					}
				}

				require.Equal(t, []string{"working", "stdout", "working"}, got[start:])

				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for working:end")
		}
	}
}

func TestWorkerSessionIDIsStamped(t *testing.T) {
	eng := &fakeEngine{}

	w, ep := startReadyWorker(t, eng)

	require.NotEmpty(t, w.SessionID())

	var readyStatus string

	for _, env := range ep.snapshot() {
		if mod, ok := env.(*envelope.Module); ok {
			readyStatus = mod.Text
		}
	}

	require.Contains(t, readyStatus, w.SessionID())
}
