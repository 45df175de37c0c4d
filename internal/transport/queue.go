package transport

import (
	"context"
	"errors"
	"sync"

	"motomaster/internal/telegram"
)

var (
	ErrQueueFull   = errors.New("update queue is full")
	ErrQueueClosed = errors.New("update queue is closed")
)

// UpdateQueue is a bounded FIFO of webhook updates. Producers never block.
type UpdateQueue struct {
	mu     sync.RWMutex
	ch     chan telegram.Update
	closed bool
}

func NewUpdateQueue(capacity int) *UpdateQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &UpdateQueue{ch: make(chan telegram.Update, capacity)}
}

func (q *UpdateQueue) TryEnqueue(u telegram.Update) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- u:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until an update is available. It returns false when ctx is
// done or the queue was closed and drained.
func (q *UpdateQueue) Dequeue(ctx context.Context) (telegram.Update, bool) {
	select {
	case u, ok := <-q.ch:
		return u, ok
	case <-ctx.Done():
		return telegram.Update{}, false
	}
}

func (q *UpdateQueue) Depth() int {
	return len(q.ch)
}

func (q *UpdateQueue) Capacity() int {
	return cap(q.ch)
}

// Close stops accepting updates. Already queued updates can still be
// dequeued.
func (q *UpdateQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
