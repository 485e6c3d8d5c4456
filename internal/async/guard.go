package async

import "sync/atomic"

// Guard provides non-blocking mutual exclusion for a logical load path:
// at most one execution in flight, concurrent callers rejected rather
// than queued.
type Guard struct {
	busy atomic.Bool
}

// TryEnter attempts to claim the guard without blocking. A false return
// means a load is already in flight and the caller must skip all work.
func (g *Guard) TryEnter() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard. It must be paired with every successful
// TryEnter, deferred so that cancellation and failure paths cannot leave
// the guard held.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// InFlight reports whether a load currently holds the guard
func (g *Guard) InFlight() bool {
	return g.busy.Load()
}
