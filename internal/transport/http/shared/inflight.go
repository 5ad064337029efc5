package shared

import "sync"

// InflightGuard prevents duplicate concurrent submission of the mutating
// actions that matter (status change, payment). Per-process only: it is
// the busy-flag of a view, not a cross-session lock; concurrent edits from
// two consoles still resolve last-write-wins on the server.
type InflightGuard struct {
	mu   sync.Mutex
	busy map[string]bool
}

func NewInflightGuard() *InflightGuard {
	return &InflightGuard{busy: make(map[string]bool)}
}

// TryAcquire marks key busy and reports whether the caller got it.
func (g *InflightGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[key] {
		return false
	}
	g.busy[key] = true
	return true
}

func (g *InflightGuard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}
