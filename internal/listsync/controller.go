// Package listsync keeps one remotely fetched list and the subset of it the screen
// displays for the current search.
package listsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"oversee-cli/internal/apperr"
	"oversee-cli/internal/listfilter"
)

var log = logrus.StandardLogger().WithField("package", "listsync")

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotReady = apperr.Validation(apperr.CodeNotReady, "the list can only be refreshed once it has loaded")
	ErrDisposed = apperr.Validation(apperr.CodeDisposed, "the screen was closed")

	// ErrSuperseded is returned by a Load or Refresh whose result was dropped
	// because a newer one started after it.
	ErrSuperseded = errors.New("listsync: superseded by a newer load")
)

// FetchFunc fetches the whole list. Its scope (branch, parent document) is bound
// when the func is built.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Snapshot is a consistent copy of a controller's observable state.
type Snapshot[T any] struct {
	State     State
	Displayed []T
	Total     int
	Query     string
	Err       error
}

// Controller owns the canonical record set of one list.
//
// Only the latest Load or Refresh may commit: each one bumps a generation and
// cancels the context of the request it supersedes.
type Controller[T listfilter.Searchable] struct {
	fetch FetchFunc[T]

	mu        sync.Mutex
	state     State
	canonical []T
	displayed []T
	query     string
	err       error
	gen       uint64
	cancel    context.CancelFunc
	disposed  bool
	observers []func(Snapshot[T])
}

func NewController[T listfilter.Searchable](fetch FetchFunc[T]) *Controller[T] {
	return &Controller[T]{fetch: fetch}
}

// Load fetches the list. It may be called from any state; the result replaces
// any in-flight request.
func (c *Controller[T]) Load(ctx context.Context) error {
	return c.run(ctx, Loading)
}

// Refresh refetches a loaded list while keeping it displayed.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	return c.run(ctx, Refreshing)
}

func (c *Controller[T]) run(ctx context.Context, target State) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if target == Refreshing && c.state != Ready {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = target
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	records, err := c.fetch(fctx)
	cancel()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		log.WithField("generation", gen).Debug("dropping result of disposed list")
		return ErrDisposed
	}
	if gen != c.gen {
		c.mu.Unlock()
		log.WithFields(logrus.Fields{"generation": gen, "current": c.gen}).Debug("dropping stale list result")
		return ErrSuperseded
	}
	c.cancel = nil
	if err != nil {
		c.state = Failed
		c.err = err
		snap = c.snapshotLocked()
		c.mu.Unlock()
		log.WithError(err).WithField("state", target.String()).Warn("list fetch failed")
		c.notify(snap)
		return err
	}
	if records == nil {
		records = []T{}
	}
	c.canonical = records
	c.displayed = listfilter.Filter(records, c.query)
	c.state = Ready
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// SetQuery stores the stable query and re-derives the displayed subset.
func (c *Controller[T]) SetQuery(stable string) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.query = stable
	c.displayed = listfilter.Filter(c.canonical, stable)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// ReplaceOne applies update to the first canonical record matching match and
// re-derives the displayed subset. match and update run under the controller's
// lock and must not call back into it.
func (c *Controller[T]) ReplaceOne(match func(T) bool, update func(T) T) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	idx := -1
	for i := range c.canonical {
		if match(c.canonical[i]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	next := make([]T, len(c.canonical))
	copy(next, c.canonical)
	next[idx] = update(next[idx])
	c.canonical = next
	c.displayed = listfilter.Filter(next, c.query)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return true
}

// Find returns the first canonical record matching match.
func (c *Controller[T]) Find(match func(T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.canonical {
		if match(r) {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Dispose cancels any in-flight fetch. Its result is ignored and later loads fail
// with ErrDisposed.
func (c *Controller[T]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.observers = nil
}

// OnChange registers fn to be called, outside the lock, after every change.
func (c *Controller[T]) OnChange(fn func(Snapshot[T])) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Controller[T]) notify(s Snapshot[T]) {
	c.mu.Lock()
	obs := slices.Clone(c.observers)
	c.mu.Unlock()
	for _, fn := range obs {
		fn(s)
	}
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller[T]) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Busy reports whether a fetch is in flight.
func (c *Controller[T]) Busy() bool {
	s := c.State()
	return s == Loading || s == Refreshing
}

// ShowSkeleton is true while the list loads without anything to show yet.
func (c *Controller[T]) ShowSkeleton() bool { return c.State() == Loading }

// ShowOverlay is true while a refresh runs on top of the displayed list.
func (c *Controller[T]) ShowOverlay() bool { return c.State() == Refreshing }

func (c *Controller[T]) Displayed() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.displayed...)
}

func (c *Controller[T]) Canonical() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.canonical...)
}

func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		State:     c.state,
		Displayed: append([]T(nil), c.displayed...),
		Total:     len(c.canonical),
		Query:     c.query,
		Err:       c.err,
	}
}
