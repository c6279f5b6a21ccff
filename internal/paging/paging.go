// Package paging provides a bounded iterator over paginated provider responses.
//
// Both provider clients page differently (opaque continuation tokens versus
// numeric offsets) but share the same termination rules: stop on an empty
// page, when the provider reports no more data, when the caller's target has
// been collected, when a request cap is reached, or on the first error.
package paging

import "context"

// Page is one provider response.
type Page[T any, C any] struct {
	Next  C
	Items []T
	More  bool
}

// FetchFunc retrieves the page at cursor. want is the number of items still
// needed to reach the target, or zero when no target is set.
type FetchFunc[T any, C any] func(ctx context.Context, cursor C, want int) (Page[T, C], error)

// Progress describes the iteration so far.
type Progress struct {
	Requests  int
	Collected int
	LastCount int
}

// StopFunc reports whether iteration should end after the page that produced p.
type StopFunc func(p Progress) bool

// Iterator walks pages until one of its stop conditions fires.
type Iterator[T any, C any] struct {
	err         error
	fetch       FetchFunc[T, C]
	cursor      C
	page        Page[T, C]
	stops       []StopFunc
	progress    Progress
	target      int
	maxRequests int
	done        bool
	capped      bool
}

// Option configures an Iterator.
type Option func(*settings)

type settings struct {
	stops       []StopFunc
	target      int
	maxRequests int
}

// WithTarget stops iteration once n items have been collected.
func WithTarget(n int) Option {
	return func(s *settings) { s.target = n }
}

// WithMaxRequests caps the number of fetches. Reaching the cap before any
// other stop condition marks the iterator as Capped.
func WithMaxRequests(n int) Option {
	return func(s *settings) { s.maxRequests = n }
}

// WithStop adds a caller-defined stop condition.
func WithStop(fn StopFunc) Option {
	return func(s *settings) { s.stops = append(s.stops, fn) }
}

// New creates an Iterator starting at cursor.
func New[T any, C any](start C, fetch FetchFunc[T, C], opts ...Option) *Iterator[T, C] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return &Iterator[T, C]{
		fetch:       fetch,
		cursor:      start,
		stops:       s.stops,
		target:      s.target,
		maxRequests: s.maxRequests,
	}
}

// Next fetches the next page. It returns false once iteration has ended;
// callers then inspect Err and Capped.
func (it *Iterator[T, C]) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if it.target > 0 && it.progress.Collected >= it.target {
		it.done = true
		return false
	}
	if it.maxRequests > 0 && it.progress.Requests >= it.maxRequests {
		it.done = true
		it.capped = true
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		it.done = true
		return false
	}

	want := 0
	if it.target > 0 {
		want = it.target - it.progress.Collected
	}

	page, err := it.fetch(ctx, it.cursor, want)
	it.progress.Requests++
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	if it.target > 0 && len(page.Items) > want {
		page.Items = page.Items[:want]
	}

	it.page = page
	it.progress.LastCount = len(page.Items)
	it.progress.Collected += len(page.Items)
	it.cursor = page.Next

	if len(page.Items) == 0 {
		it.done = true
		return false
	}
	if !page.More {
		it.done = true
	}
	for _, stop := range it.stops {
		if stop(it.progress) {
			it.done = true
			break
		}
	}
	return true
}

// Page returns the page produced by the last successful Next.
func (it *Iterator[T, C]) Page() Page[T, C] {
	return it.page
}

// Cursor returns the cursor that would be used for the following fetch.
func (it *Iterator[T, C]) Cursor() C {
	return it.cursor
}

// Err returns the error that ended iteration, if any.
func (it *Iterator[T, C]) Err() error {
	return it.err
}

// Capped reports whether iteration ended because the request cap was reached.
func (it *Iterator[T, C]) Capped() bool {
	return it.capped
}

// Progress returns counters for the iteration so far.
func (it *Iterator[T, C]) Progress() Progress {
	return it.progress
}

// Collect drains the iterator and returns every item. On error the items
// gathered before the failure are returned alongside it.
func Collect[T any, C any](ctx context.Context, it *Iterator[T, C]) ([]T, error) {
	var out []T
	for it.Next(ctx) {
		out = append(out, it.Page().Items...)
	}
	return out, it.Err()
}
