package transport

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tobgle/shellbridge/internal/envelope"
	"github.com/tobgle/shellbridge/internal/errors"
)

func TestPipeDelivery(t *testing.T) {
	a, b := Pipe(slog.Default(), 4)

	ctx := context.Background()

	require.NoError(t, a.Send(ctx, &envelope.ShellExec{Text: "SELECT 1;"}))

	env := <-b.Receive()

	exec, ok := env.(*envelope.ShellExec)
	require.True(t, ok, "expected *ShellExec, got %T", env)
	require.Equal(t, "SELECT 1;", exec.Text)
}

func TestPipePreservesSendOrder(t *testing.T) {
	a, b := Pipe(slog.Default(), 8)

	ctx := context.Background()

	sent := []envelope.Envelope{
		&envelope.Working{State: envelope.WorkingStart},
		&envelope.Stdout{Lines: []string{"1"}},
		&envelope.Stderr{Lines: []string{"warning"}},
		&envelope.Working{State: envelope.WorkingEnd},
	}

	for _, env := range sent {
		require.NoError(t, a.Send(ctx, env))
	}

	for i, want := range sent {
		got := <-b.Receive()
		if got.EnvelopeType() != want.EnvelopeType() {
			t.Errorf("envelope %d: expected type %q, got %q", i, want.EnvelopeType(), got.EnvelopeType())
		}
	}
}

func TestPipeSendAfterCloseFails(t *testing.T) {
	a, _ := Pipe(slog.Default(), 4)

	require.NoError(t, a.Close())

	err := a.Send(context.Background(), &envelope.Stdout{Lines: []string{"x"}})
	require.ErrorIs(t, err, errors.ErrTransportClosed)
}

func TestPipeCloseEndsReceive(t *testing.T) {
	a, b := Pipe(slog.Default(), 4)

	ctx := context.Background()

	require.NoError(t, a.Send(ctx, &envelope.Stdout{Lines: []string{"last"}}))
	require.NoError(t, a.Close())

	// In-flight envelopes drain before the channel ends.
	env, ok := <-b.Receive()
	require.True(t, ok)
	require.Equal(t, envelope.TypeStdout, env.EnvelopeType())

	_, ok = <-b.Receive()
	require.False(t, ok, "receive channel should be closed after drain")
}

func TestPipeCloseIsDirectional(t *testing.T) {
	a, b := Pipe(slog.Default(), 4)

	require.NoError(t, a.Close())

	// b's outbound direction is still open.
	require.NoError(t, b.Send(context.Background(), &envelope.Stderr{Lines: []string{"still here"}}))

	env := <-a.Receive()
	require.Equal(t, envelope.TypeStderr, env.EnvelopeType())
}

func TestPipeSendUnblocksOnClose(t *testing.T) {
	a, _ := Pipe(slog.Default(), 1)

	ctx := context.Background()

	// Fill the buffer so the next send blocks.
	require.NoError(t, a.Send(ctx, &envelope.Stdout{Lines: []string{"fill"}}))

	var wg sync.WaitGroup

	errCh := make(chan error, 1)

	wg.Add(1)

	go func() {
		defer wg.Done()

		errCh <- a.Send(ctx, &envelope.Stdout{Lines: []string{"blocked"}})
	}()

	// Give the send a moment to block, then close underneath it.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Close())

	wg.Wait()
	require.ErrorIs(t, <-errCh, errors.ErrTransportClosed)
}

func TestPipeSendRespectsContext(t *testing.T) {
	a, _ := Pipe(slog.Default(), 1)

	ctx := context.Background()

	require.NoError(t, a.Send(ctx, &envelope.Stdout{Lines: []string{"fill"}}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err := a.Send(cancelled, &envelope.Stdout{Lines: []string{"blocked"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeCloseIsIdempotent(t *testing.T) {
	a, _ := Pipe(slog.Default(), 4)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
