package shellbridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tobgle/shellbridge/internal/envelope"
	bridgeerrors "github.com/tobgle/shellbridge/internal/errors"
)

// Result collects everything the worker emitted for a single command.
type Result struct {
	// Stdout holds one entry per stdout envelope, each entry the
	// envelope's bundle of lines.
	Stdout [][]string

	// Stderr holds one entry per stderr envelope.
	Stderr [][]string

	// Statuses holds module status texts in arrival order.
	Statuses []string

	// Rejected reports that the command was refused outside any working
	// bracket, which only happens once the engine has died.
	Rejected bool
}

// pendingRun tracks one in-flight command on the control side.
//
// An abandoned run (its Run call gave up on a cancelled context) stays
// pending as a drain-only sentinel: the command was already sent, so its
// working bracket is still owed and must not be correlated into a later
// Run.
type pendingRun struct {
	started   bool
	rejected  bool
	completed bool
	abandoned bool
	res       Result
	done      chan struct{}
}

// Proxy is the control-side face of the worker. It sends shellExec
// envelopes and folds the reply stream back into per-command results.
//
// A single Run may be in flight at a time; a second concurrent Run fails
// with ErrCommandInFlight without touching the transport. Observers, when
// configured, see every envelope including bootstrap output that arrives
// outside any Run.
type Proxy struct {
	log *slog.Logger
	ep  Endpoint

	onStdout func([]string)
	onStderr func([]string)
	onStatus func(string)

	mu      sync.Mutex
	pending *pendingRun
	dead    bool
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// NewProxy builds a proxy over the control endpoint of a connected pair.
// Call Start before Run.
func NewProxy(log *slog.Logger, ep Endpoint, opts *Options) *Proxy {
	if log == nil {
		log = NopLogger()
	}

	p := &Proxy{
		log:  log.With("component", "proxy"),
		ep:   ep,
		done: make(chan struct{}),
	}
	if opts != nil {
		p.onStdout = opts.OnStdout
		p.onStderr = opts.OnStderr
		p.onStatus = opts.OnStatus
	}

	return p
}

// Start launches the receive loop. It returns immediately.
func (p *Proxy) Start() {
	p.wg.Add(1)
	go func() { defer p.wg.Done(); p.loop() }()
}

// loop drains the control endpoint until it closes or the proxy stops.
func (p *Proxy) loop() {
	for {
		select {
		case env, ok := <-p.ep.Receive():
			if !ok {
				p.log.Debug("Control endpoint closed")
				p.shutdown()

				return
			}

			p.deliver(env)
		case <-p.done:
			return
		}
	}
}

// deliver routes one inbound envelope to observers and the pending run.
func (p *Proxy) deliver(env envelope.Envelope) {
	p.mu.Lock()
	pend := p.pending

	switch e := env.(type) {
	case *envelope.Working:
		switch e.State {
		case envelope.WorkingStart:
			if pend != nil {
				pend.started = true
			}
		case envelope.WorkingEnd:
			if pend != nil {
				pend.completed = true
				p.pending = nil
				close(pend.done)
			}
		}

		p.mu.Unlock()

	case *envelope.Stdout:
		if pend != nil && pend.started && !pend.abandoned {
			pend.res.Stdout = append(pend.res.Stdout, e.Lines)
		}
		p.mu.Unlock()

		if p.onStdout != nil {
			p.onStdout(e.Lines)
		}

	case *envelope.Stderr:
		if pend != nil && !pend.started {
			// A diagnostic outside any working bracket while a command is
			// pending means the engine refused it outright: the engine is
			// dead and no working:end will follow.
			pend.rejected = true
			pend.completed = true
			pend.res.Rejected = true
			pend.res.Stderr = append(pend.res.Stderr, e.Lines)
			p.pending = nil
			p.dead = true
			close(pend.done)
			p.mu.Unlock()

			if p.onStderr != nil {
				p.onStderr(e.Lines)
			}

			return
		}

		if pend != nil && !pend.abandoned {
			pend.res.Stderr = append(pend.res.Stderr, e.Lines)
		}
		p.mu.Unlock()

		if p.onStderr != nil {
			p.onStderr(e.Lines)
		}

	case *envelope.Module:
		if pend != nil && pend.started && !pend.abandoned {
			pend.res.Statuses = append(pend.res.Statuses, e.Text)
		}
		p.mu.Unlock()

		if p.onStatus != nil {
			p.onStatus(e.Text)
		}

	default:
		p.mu.Unlock()
		p.log.Warn("Dropping unexpected envelope on control side", "envelope_type", env.EnvelopeType())
	}
}

// Run sends one command and blocks until the worker finishes with it.
//
// The returned Result holds everything emitted inside the command's
// working bracket. Refusals by a live worker (busy, still loading) arrive
// as ordinary stderr inside the bracket and return a nil error; a refusal
// because the engine has died returns ErrEngineDead alongside the
// diagnostic, and every later Run fails fast with the same error.
//
// Cancelling the context abandons the command but does not abort it: there
// is no cancellation on the wire, so the proxy keeps the in-flight gate
// held and discards the command's envelopes until its working:end arrives.
// Run calls made during that drain fail with ErrCommandInFlight.
func (p *Proxy) Run(ctx context.Context, text string) (*Result, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return nil, bridgeerrors.ErrBridgeClosed
	}
	if p.dead {
		p.mu.Unlock()

		return nil, bridgeerrors.ErrEngineDead
	}
	if p.pending != nil {
		p.mu.Unlock()

		return nil, bridgeerrors.ErrCommandInFlight
	}

	pend := &pendingRun{done: make(chan struct{})}
	p.pending = pend
	p.mu.Unlock()

	if err := p.ep.Send(ctx, &envelope.ShellExec{Text: text}); err != nil {
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()

		return nil, err
	}

	select {
	case <-pend.done:
	case <-ctx.Done():
		// The command is already on the wire and its working bracket is
		// still owed. Keep the gate held: the run stays pending as a
		// drain-only sentinel until its working:end arrives, so a later Run
		// cannot interleave with it.
		p.mu.Lock()
		pend.abandoned = true
		p.mu.Unlock()

		return nil, ctx.Err()
	}

	p.mu.Lock()
	completed, rejected := pend.completed, pend.rejected
	p.mu.Unlock()

	if !completed {
		// Released by shutdown, not by the worker.
		return nil, bridgeerrors.ErrBridgeClosed
	}
	if rejected {
		return &pend.res, bridgeerrors.ErrEngineDead
	}

	return &pend.res, nil
}

// shutdown marks the proxy unusable and releases any blocked Run.
func (p *Proxy) shutdown() {
	p.mu.Lock()
	p.closed = true
	pend := p.pending
	p.pending = nil
	p.mu.Unlock()

	p.doneOnce.Do(func() { close(p.done) })

	if pend != nil {
		close(pend.done)
	}
}

// Close stops the receive loop and closes the control endpoint. The proxy
// cannot be restarted.
func (p *Proxy) Close() error {
	p.shutdown()
	err := p.ep.Close()
	p.wg.Wait()

	return err
}
