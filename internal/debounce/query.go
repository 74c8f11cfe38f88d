// Package debounce turns a stream of raw search input into a settled ("stable") query.
package debounce

import (
	"sync"
	"time"

	"oversee-cli/internal/clock"
)

// DefaultInterval is the quiescence interval used by list screens.
const DefaultInterval = 200 * time.Millisecond

// Query holds the raw search text and publishes it as the stable query once no
// new input arrived for the interval. At most one publication is pending at a time.
type Query struct {
	interval time.Duration
	clk      clock.Clock
	publish  func(string)

	mu      sync.Mutex
	timer   clock.Timer
	seq     uint64
	raw     string
	stable  string
	pending bool
	closed  bool
}

// New returns a Query. publish may be nil; it is called outside the lock, from the
// timer's goroutine.
func New(interval time.Duration, clk clock.Clock, publish func(string)) *Query {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Query{
		interval: interval,
		clk:      clock.OrReal(clk),
		publish:  publish,
	}
}

// Set records a new raw value and restarts the quiescence timer.
func (q *Query) Set(raw string) {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.raw = raw
	q.pending = true
	if q.timer != nil {
		q.timer.Stop()
	}
	q.seq++
	seq := q.seq
	q.timer = q.clk.AfterFunc(q.interval, func() { q.onTimer(seq) })
}

func (q *Query) onTimer(seq uint64) {
	q.mu.Lock()
	// A timer that fired while Set was replacing it carries an old seq.
	if q.closed || seq != q.seq || !q.pending {
		q.mu.Unlock()
		return
	}
	q.pending = false
	q.timer = nil
	q.stable = q.raw
	value := q.stable
	publish := q.publish
	q.mu.Unlock()

	if publish != nil {
		publish(value)
	}
}

// Flush publishes the pending raw value immediately (e.g. on enter).
func (q *Query) Flush() {
	if q == nil {
		return
	}
	q.mu.Lock()
	if q.closed || !q.pending {
		q.mu.Unlock()
		return
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	seq := q.seq
	q.mu.Unlock()
	q.onTimer(seq)
}

func (q *Query) Raw() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.raw
}

func (q *Query) Stable() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stable
}

// Pending reports whether a publication is scheduled.
func (q *Query) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Close cancels any pending publication. Nothing is published after Close.
func (q *Query) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = false
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}
