// Package gate provides the process-wide mutual-exclusion gates that
// serialize stock mutations and order creation. A gate admits one caller
// at a time and is not reentrant: a gated operation must never call
// another operation that acquires the same gate.
package gate

import "sync"

type Gate struct {
	mu sync.Mutex
}

func New() *Gate {
	return &Gate{}
}

func (g *Gate) Acquire() {
	g.mu.Lock()
}

func (g *Gate) Release() {
	g.mu.Unlock()
}

// Do runs fn while holding the gate. The gate is released on every exit
// path, including panics.
func (g *Gate) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
