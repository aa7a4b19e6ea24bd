package scan

import "sync"

// Guard ensures at most one scan (price or offer sync) runs at a time and
// carries the cooperative stop request. All access is mutex-guarded; the
// flags are never exposed as raw state.
type Guard struct {
	mu            sync.Mutex
	inProgress    bool
	stopRequested bool
}

// TryStart atomically claims the scan slot. Callers receiving false must
// report "scan already in progress" rather than queue.
func (g *Guard) TryStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inProgress {
		return false
	}
	g.inProgress = true
	g.stopRequested = false
	return true
}

// RequestStop asks the running scan to wind down after its current batch.
// A no-op when nothing is running; returns whether the request was accepted.
func (g *Guard) RequestStop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inProgress {
		return false
	}
	g.stopRequested = true
	return true
}

// StopRequested is polled by the orchestrator between units of work.
func (g *Guard) StopRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopRequested
}

// InProgress reports whether a scan currently holds the slot.
func (g *Guard) InProgress() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inProgress
}

// Finish releases the slot and clears any stop request, whatever state the
// scan ended in.
func (g *Guard) Finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inProgress = false
	g.stopRequested = false
}
