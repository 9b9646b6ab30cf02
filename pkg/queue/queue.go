package queue

import "errors"

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("queue is full")

// Queue is a bounded FIFO shared between producer goroutines and the
// tick loop, which drains it with ReadAllMessages.
type Queue interface {
	Enqueue(item interface{}) error
	Size() int
	ReadAllMessages() ([]interface{}, error)
	ClearQueue()
}
