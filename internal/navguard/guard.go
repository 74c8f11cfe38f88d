// Package navguard keeps rapid repeated taps on a list row from opening the same
// screen twice.
package navguard

import (
	"sync"
	"time"

	"oversee-cli/internal/clock"
)

// DefaultWindow is how long a successful TryEnter holds the lock.
const DefaultWindow = 800 * time.Millisecond

// Guard is a time-windowed lock. It is released by its timer, not by a
// "navigation finished" signal; it behaves as a rate limiter on navigation.
type Guard struct {
	clk    clock.Clock
	window time.Duration
	busy   func() bool

	mu     sync.Mutex
	locked bool
	timer  clock.Timer
	seq    uint64
}

// New returns a Guard. busy reports whether a fetch is in flight; it may be nil.
func New(clk clock.Clock, window time.Duration, busy func() bool) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{clk: clock.OrReal(clk), window: window, busy: busy}
}

// TryEnter acquires the lock and schedules its release. It returns false, without
// side effects, while busy or while the lock is held.
func (g *Guard) TryEnter() bool {
	if g.busy != nil && g.busy() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return false
	}
	g.locked = true
	g.seq++
	seq := g.seq
	g.timer = g.clk.AfterFunc(g.window, func() { g.release(seq) })
	return true
}

func (g *Guard) release(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq != g.seq {
		return
	}
	g.locked = false
	g.timer = nil
}

func (g *Guard) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}

// Window returns the lock duration.
func (g *Guard) Window() time.Duration { return g.window }

// Close stops the release timer and unlocks.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.seq++
	g.locked = false
}
