// Package observe provides the two state primitives the client exposes to a
// presentation layer: a replace-on-write current value and a deliver-once
// message queue.
package observe

import "sync"

// View is the read side of a Value.
type View[T any] interface {
	Load() T
	Changed() <-chan struct{}
}

// Value holds the latest T. Watchers are woken on every Store; they read the
// current value rather than receiving intermediate ones.
type Value[T any] struct {
	mu      sync.RWMutex
	v       T
	version uint64
	changed chan struct{}
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, changed: make(chan struct{})}
}

func (c *Value[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Version increases by one on each Store.
func (c *Value[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Value[T]) Store(v T) {
	c.mu.Lock()
	c.v = v
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

// Update applies fn to the current value under the write lock.
func (c *Value[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.v = fn(c.v)
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

// Changed returns a channel closed by the next Store.
func (c *Value[T]) Changed() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changed
}
