package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrFull is returned by Send when the queue is at capacity. Callers
	// fail the submission fast instead of queueing unboundedly.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned once the queue is closed and drained.
	ErrClosed = errors.New("queue closed")
)

// Memory is a bounded in-process queue. Send never blocks: a full queue is
// the backpressure signal. Receive hands each message to exactly one
// caller, which is what keeps a job on a single worker.
type Memory struct {
	ch        chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory constructs a Memory queue with the given capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 32
	}
	return &Memory{
		ch:   make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

// Send enqueues the message or fails fast with ErrFull.
func (m *Memory) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Receive blocks until a message is available, the context ends, or the
// queue is closed and drained.
func (m *Memory) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-m.done:
		// drain messages enqueued before close
		select {
		case msg := <-m.ch:
			return msg, nil
		default:
			return Message{}, ErrClosed
		}
	}
}

// Depth reports how many messages are waiting.
func (m *Memory) Depth() int {
	return len(m.ch)
}

// Close stops the queue. Messages already enqueued can still be received.
func (m *Memory) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

var _ Client = (*Memory)(nil)
