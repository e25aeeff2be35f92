package bus

import (
	"context"
	"sync/atomic"

	"autotrader/internal/schema"

	"github.com/yanun0323/errors"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Envelope is the unit passed through the in-memory bus.
type Envelope struct {
	Event  schema.Event
	TsRecv int64
}

// Queue is a bounded event queue with a single consumer.
type Queue struct {
	ch     chan Envelope
	done   chan struct{}
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan Envelope, capacity),
		done: make(chan struct{}),
	}
}

// TryPublish enqueues an envelope without blocking.
func (q *Queue) TryPublish(e Envelope) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish enqueues an envelope, waiting for room until ctx is done.
func (q *Queue) Publish(ctx context.Context, e Envelope) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue from accepting new envelopes. Queued envelopes are
// still delivered to Run.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.done)
	}
}

// Len returns the number of queued envelopes.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Run consumes envelopes until the context is done, the queue is closed and
// drained, or the handler returns an error.
func (q *Queue) Run(ctx context.Context, handler func(Envelope) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-q.ch:
			if err := handler(e); err != nil {
				return err
			}
		case <-q.done:
			for {
				select {
				case e := <-q.ch:
					if err := handler(e); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}
