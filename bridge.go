package shellbridge

import (
	"context"
	"sync"

	"github.com/tobgle/shellbridge/internal/engine"
	bridgeerrors "github.com/tobgle/shellbridge/internal/errors"
	"github.com/tobgle/shellbridge/internal/transport"
	"github.com/tobgle/shellbridge/internal/worker"
)

// Bridge owns a worker-hosted engine and the control-side proxy talking to
// it. It is the main entry point for interactive use; for one-shot
// execution see Exec.
//
// A bridge is single-use: after Close it cannot be restarted.
type Bridge struct {
	proxy  *Proxy
	worker *worker.Worker

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a bridge without starting it. Call Start, then WaitReady,
// then Run.
func New(opts ...Option) *Bridge {
	options := applyOptions(opts)

	log := options.logger()

	eng := options.Engine
	if eng == nil {
		eng = engine.NewSQLite(log, engine.SQLiteConfig{
			Path: options.Database,
			Seed: options.Seed,
		})
	}

	control, workerEnd := options.ControlEndpoint, options.WorkerEndpoint
	if control == nil || workerEnd == nil {
		control, workerEnd = transport.Pipe(log, options.Buffer)
	}

	return &Bridge{
		proxy:  NewProxy(log, control, options),
		worker: worker.New(log, workerEnd, eng),
	}
}

// Start launches the worker and the control-side receive loop. The engine
// loads in the background; use WaitReady to block until it can accept
// commands.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return bridgeerrors.ErrBridgeClosed
	}
	if b.started {
		return nil
	}

	if err := b.worker.Start(ctx); err != nil {
		return err
	}

	b.proxy.Start()
	b.started = true

	return nil
}

// WaitReady blocks until the engine has finished loading, the load has
// failed (ErrEngineDead), or the context is done.
func (b *Bridge) WaitReady(ctx context.Context) error {
	return b.worker.WaitReady(ctx)
}

// Run executes one command and returns everything the worker emitted for
// it. See Proxy.Run for the full contract.
func (b *Bridge) Run(ctx context.Context, text string) (*Result, error) {
	return b.proxy.Run(ctx, text)
}

// SessionID returns the identifier stamped into the engine's ready status.
func (b *Bridge) SessionID() string {
	return b.worker.SessionID()
}

// Close tears the bridge down: it stops the control loop, closes the
// transport, and shuts the worker and its engine down. Safe to call more
// than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.proxy.Close()
	b.worker.Stop()

	return err
}
