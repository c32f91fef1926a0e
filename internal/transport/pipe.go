package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tobgle/shellbridge/internal/envelope"
	"github.com/tobgle/shellbridge/internal/errors"
)

// DefaultBuffer is the per-direction envelope buffer used by Pipe when the
// caller does not specify one. A modest buffer keeps emission fire-and-forget
// for typical command output without letting a stalled consumer grow memory
// unbounded.
const DefaultBuffer = 64

// Endpoint is one end of a bidirectional envelope channel.
//
// Send is asynchronous from the peer's point of view: it enqueues the
// envelope and returns, blocking only when the direction buffer is full.
// Envelopes are delivered to the peer in send order (per-direction FIFO).
//
// Closing an endpoint closes its outbound direction: the peer's Receive
// channel ends after draining in-flight envelopes, and further Sends on this
// end return ErrTransportClosed. The inbound direction stays open until the
// peer closes its own end, so shutdown cascades one direction at a time.
type Endpoint interface {
	Send(ctx context.Context, env envelope.Envelope) error
	Receive() <-chan envelope.Envelope
	Close() error
}

// Pipe creates a connected pair of endpoints backed by in-memory channels.
// Envelopes sent on one end arrive on the other, each direction with its own
// FIFO buffer of the given size (DefaultBuffer when size <= 0).
func Pipe(log *slog.Logger, size int) (Endpoint, Endpoint) {
	if size <= 0 {
		size = DefaultBuffer
	}

	log = log.With("component", "pipe_transport")

	forward := newHalf(size)
	backward := newHalf(size)

	a := &pipeEnd{log: log.With("end", "a"), out: forward, in: backward}
	b := &pipeEnd{log: log.With("end", "b"), out: backward, in: forward}

	return a, b
}

// pipeEnd implements Endpoint over one outbound and one inbound half.
type pipeEnd struct {
	log *slog.Logger
	out *half
	in  *half
}

// Compile-time verification that pipeEnd implements the Endpoint interface.
var _ Endpoint = (*pipeEnd)(nil)

func (p *pipeEnd) Send(ctx context.Context, env envelope.Envelope) error {
	if err := p.out.send(ctx, env); err != nil {
		p.log.Debug("Send on closed or cancelled pipe", "envelope_type", env.EnvelopeType(), "error", err)

		return err
	}

	p.log.Debug("Envelope sent", "envelope_type", env.EnvelopeType())

	return nil
}

func (p *pipeEnd) Receive() <-chan envelope.Envelope {
	return p.in.ch
}

func (p *pipeEnd) Close() error {
	p.log.Debug("Closing pipe endpoint")
	p.out.close()

	return nil
}

// half is one direction of the pipe. The sending side owns the channel
// close; a close requested while sends are blocked is deferred until the
// last blocked send drains, so the channel is never closed under a sender.
type half struct {
	ch   chan envelope.Envelope
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	chClosed bool
	sending  int
}

func newHalf(size int) *half {
	return &half{
		ch:   make(chan envelope.Envelope, size),
		done: make(chan struct{}),
	}
}

func (h *half) send(ctx context.Context, env envelope.Envelope) error {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()

		return errors.ErrTransportClosed
	}

	h.sending++
	h.mu.Unlock()

	defer h.senderDone()

	select {
	case h.ch <- env:
		return nil
	case <-h.done:
		return errors.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// senderDone releases one in-flight send and completes a pending close once
// the last sender drains.
func (h *half) senderDone() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sending--

	if h.closed && h.sending == 0 && !h.chClosed {
		close(h.ch)

		h.chClosed = true
	}
}

func (h *half) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	close(h.done)

	if h.sending == 0 {
		close(h.ch)

		h.chClosed = true
	}
}
