package core

import "sync"

// ViewGuard keeps the result of the most recently started load. Each load
// takes a token from Begin; a result is applied only if no newer load has
// started since, so a slow response can never overwrite a newer view.
type ViewGuard[T any] struct {
	mu        sync.Mutex
	issued    uint64
	committed uint64
	current   T
	hasValue  bool
}

// Begin issues a new token and makes every earlier token stale.
func (g *ViewGuard[T]) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.issued
}

// IsLatest reports whether token is still the newest issued.
func (g *ViewGuard[T]) IsLatest(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return token == g.issued
}

// Commit stores v if token is still the newest issued and reports whether it did.
func (g *ViewGuard[T]) Commit(token uint64, v T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.issued {
		return false
	}
	g.current = v
	g.committed = token
	g.hasValue = true
	return true
}

// Current returns the last committed value and the token it was committed with.
func (g *ViewGuard[T]) Current() (T, uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current, g.committed, g.hasValue
}

// Reset drops the committed value and invalidates in-flight loads.
func (g *ViewGuard[T]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	var zero T
	g.issued++
	g.current = zero
	g.committed = 0
	g.hasValue = false
}
