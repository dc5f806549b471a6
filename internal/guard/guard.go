// Package guard provides the process-wide single-flight flag that serializes
// mutating actions. It never blocks: a second caller is rejected, not queued.
package guard

import (
	"sync"
	"sync/atomic"
)

// Guard is a try-acquire lock. The zero value is ready to use.
type Guard struct {
	held atomic.Bool
}

// TryAcquire takes the guard if it is free. The returned release function
// is safe to call more than once; callers should defer it.
func (g *Guard) TryAcquire() (release func(), ok bool) {
	if !g.held.CompareAndSwap(false, true) {
		return func() {}, false
	}
	var once sync.Once
	return func() { once.Do(func() { g.held.Store(false) }) }, true
}

// Held reports whether an action is in flight.
func (g *Guard) Held() bool {
	return g.held.Load()
}
