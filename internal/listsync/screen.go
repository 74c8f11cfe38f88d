package listsync

import (
	"time"

	"oversee-cli/internal/clock"
	"oversee-cli/internal/debounce"
	"oversee-cli/internal/listfilter"
	"oversee-cli/internal/navguard"
)

type ScreenOptions struct {
	Clock     clock.Clock
	Debounce  time.Duration
	NavWindow time.Duration
}

// Screen wires a list's controller to its search box and row navigation.
// Debounced search text becomes the controller's stable query, and the
// navigation guard refuses to open a row while the list is fetching.
type Screen[T listfilter.Searchable] struct {
	List   *Controller[T]
	Search *debounce.Query
	Nav    *navguard.Guard
}

func NewScreen[T listfilter.Searchable](fetch FetchFunc[T], opts ScreenOptions) *Screen[T] {
	ctrl := NewController(fetch)
	return &Screen[T]{
		List:   ctrl,
		Search: debounce.New(opts.Debounce, opts.Clock, ctrl.SetQuery),
		Nav:    navguard.New(opts.Clock, opts.NavWindow, ctrl.Busy),
	}
}

// Type records raw search input.
func (s *Screen[T]) Type(raw string) { s.Search.Set(raw) }

// Open reports whether a row may be opened now, taking the navigation lock if so.
func (s *Screen[T]) Open() bool { return s.Nav.TryEnter() }

// Close stops pending search publications, releases the navigation lock and
// disposes the controller.
func (s *Screen[T]) Close() {
	s.Search.Close()
	s.Nav.Close()
	s.List.Dispose()
}
