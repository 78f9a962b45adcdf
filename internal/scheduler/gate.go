package scheduler

import "sync"

// Gate is the single global worker slot. At most one worker process runs at a
// time across automatic and manual dispatches; acquisition is atomic
// check-and-set so two concurrent triggers can never both win.
type Gate struct {
	mu   sync.Mutex
	held bool
}

func NewGate() *Gate {
	return &Gate{}
}

// TryAcquire claims the slot if free. Never blocks.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

// Release frees the slot. Safe to call when not held.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}

// Held reports whether a worker currently occupies the slot.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
