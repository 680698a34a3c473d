package queue

import (
	"context"
	"errors"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue has no room left.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned once the queue has been closed.
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue represents a bounded FIFO queue.
type Queue interface {
	// Enqueue adds an item without blocking.
	Enqueue(item interface{}) error
	// Dequeue blocks until an item is available, the queue is closed or the
	// context is done.
	Dequeue(ctx context.Context) (interface{}, error)
	Size() int
	ReadAllMessages() []interface{}
	ClearQueue()
	Close()
}
