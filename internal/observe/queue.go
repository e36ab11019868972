package observe

import "sync"

// Queue delivers each item to exactly one receiver. Items published before
// anyone listens are kept until read, up to capacity; past that the oldest
// item is dropped.
type Queue[T any] struct {
	mu sync.Mutex
	ch chan T
}

func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Publish never blocks. It reports false when an older item had to be dropped.
func (q *Queue[T]) Publish(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case q.ch <- v:
		return true
	default:
	}
	select {
	case <-q.ch:
	default:
	}
	q.ch <- v
	return false
}

func (q *Queue[T]) C() <-chan T {
	return q.ch
}
