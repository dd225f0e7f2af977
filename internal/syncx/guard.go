// Package syncx holds the small shared-state helpers used by the cart and
// the audio level meter.
package syncx

import "sync"

// RWGuard owns a value that is only reachable through its lock.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// View runs fn under the read lock. Slices and maps seen by fn must be
// copied before they escape it.
func (g *RWGuard[T]) View(fn func(T)) {
	g.mu.RLock()
	fn(g.value)
	g.mu.RUnlock()
}

// Update runs fn under the write lock. Changes made before fn returns an
// error are kept.
func (g *RWGuard[T]) Update(fn func(*T) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.value)
}

func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}
