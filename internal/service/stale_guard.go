package service

import "sync"

// Ticket identifies one in-flight load for a scope.
type Ticket struct {
	scope string
	seq   uint64
}

// StaleGuard discards responses that were overtaken by a newer load of the same scope.
type StaleGuard struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewStaleGuard builds a guard with no scopes.
func NewStaleGuard() *StaleGuard {
	return &StaleGuard{latest: make(map[string]uint64)}
}

// Begin issues a ticket newer than every ticket issued before for scope.
func (g *StaleGuard) Begin(scope string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[scope]++
	return Ticket{scope: scope, seq: g.latest[scope]}
}

// Current reports whether t is still the latest ticket of its scope.
func (g *StaleGuard) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[t.scope] == t.seq
}

// Commit runs apply only while t is still the latest ticket of its scope. Invalidate waits for
// a running apply, so nothing applied under a ticket can outlive its invalidation.
func (g *StaleGuard) Commit(t Ticket, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest[t.scope] != t.seq {
		return false
	}
	apply()
	return true
}

// Invalidate makes every outstanding ticket of scope stale.
func (g *StaleGuard) Invalidate(scope string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[scope]++
}
