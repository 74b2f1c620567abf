package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goran-ethernal/EventIndexor/internal/router"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
)

// ErrDispatchClosed is returned once the consumer of the dispatch queue is gone.
var ErrDispatchClosed = errors.New("dispatch channel closed")

// Dispatch is the bounded queue between the processor and the event router.
// The channel itself is never closed; Close marks the consumer as gone.
type Dispatch struct {
	ch     chan router.Envelope
	closed chan struct{}
	once   sync.Once
}

// NewDispatch creates a queue holding at most capacity envelopes.
func NewDispatch(capacity int) *Dispatch {
	return &Dispatch{
		ch:     make(chan router.Envelope, capacity),
		closed: make(chan struct{}),
	}
}

// C is the consumer side of the queue.
func (d *Dispatch) C() <-chan router.Envelope {
	return d.ch
}

// Close stops the queue. Pending and future sends fail with ErrDispatchClosed.
func (d *Dispatch) Close() {
	d.once.Do(func() { close(d.closed) })
}

// Send enqueues one log, blocking while the queue is full.
func (d *Dispatch) Send(ctx context.Context, log types.RawLog, meta types.EventMetadata) error {
	return d.send(ctx, router.Envelope{Log: log, Meta: meta, Enqueued: time.Now()})
}

// Flush waits until every log sent before it was routed and returns the first routing error.
func (d *Dispatch) Flush(ctx context.Context) error {
	ack := make(chan error, 1)
	if err := d.send(ctx, router.Envelope{Flush: ack}); err != nil {
		return err
	}

	select {
	case err := <-ack:
		return err
	case <-d.closed:
		return ErrDispatchClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatch) send(ctx context.Context, env router.Envelope) error {
	select {
	case <-d.closed:
		return ErrDispatchClosed
	default:
	}

	select {
	case d.ch <- env:
		return nil
	case <-d.closed:
		return ErrDispatchClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
