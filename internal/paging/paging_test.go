package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetSource serves total sequential ints in pages of pageSize.
func offsetSource(total, pageSize int, calls *int) FetchFunc[int, int] {
	return func(_ context.Context, offset int, _ int) (Page[int, int], error) {
		*calls++
		var items []int
		for i := offset; i < total && i < offset+pageSize; i++ {
			items = append(items, i)
		}
		return Page[int, int]{Items: items, Next: offset + len(items), More: true}, nil
	}
}

func TestIterator_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	it := New(0, offsetSource(25, 10, &calls))

	items, err := Collect(context.Background(), it)
	require.NoError(t, err)
	assert.Len(t, items, 25)
	assert.Equal(t, 4, calls, "three full pages plus the empty terminator")
	assert.False(t, it.Capped())
}

func TestIterator_Target(t *testing.T) {
	calls := 0
	it := New(5, offsetSource(100, 10, &calls), WithTarget(12))

	items, err := Collect(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, items)
	assert.Equal(t, 2, calls)
}

func TestIterator_PassesRemainingWant(t *testing.T) {
	var wants []int
	fetch := func(_ context.Context, cursor int, want int) (Page[int, int], error) {
		wants = append(wants, want)
		n := min(want, 20)
		return Page[int, int]{Items: make([]int, n), Next: cursor + n, More: true}, nil
	}

	items, err := Collect(context.Background(), New(0, fetch, WithTarget(45)))
	require.NoError(t, err)
	assert.Len(t, items, 45)
	assert.Equal(t, []int{45, 25, 5}, wants)
}

func TestIterator_RequestCap(t *testing.T) {
	calls := 0
	it := New(0, offsetSource(1000, 1, &calls), WithMaxRequests(3))

	items, err := Collect(context.Background(), it)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, calls)
	assert.True(t, it.Capped())
}

func TestIterator_ProviderReportsNoMore(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, token string, _ int) (Page[string, string], error) {
		calls++
		if token == "" {
			return Page[string, string]{Items: []string{"a", "b"}, Next: "t1", More: true}, nil
		}
		return Page[string, string]{Items: []string{"c"}}, nil
	}

	it := New("", fetch)
	items, err := Collect(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)
	assert.Equal(t, 2, calls)
	assert.Empty(t, it.Cursor())
}

func TestIterator_ErrorKeepsPartial(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(_ context.Context, offset int, _ int) (Page[int, int], error) {
		if offset >= 4 {
			return Page[int, int]{}, boom
		}
		return Page[int, int]{Items: []int{offset, offset + 1}, Next: offset + 2, More: true}, nil
	}

	it := New(0, fetch)
	items, err := Collect(context.Background(), it)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1, 2, 3}, items)
	assert.Equal(t, 3, it.Progress().Requests)
}

func TestIterator_CustomStop(t *testing.T) {
	calls := 0
	it := New(0, offsetSource(100, 10, &calls), WithStop(func(p Progress) bool {
		return p.Collected >= 30
	}))

	items, err := Collect(context.Background(), it)
	require.NoError(t, err)
	assert.Len(t, items, 30)
	assert.Equal(t, 3, calls)
}

func TestIterator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	it := New(0, offsetSource(10, 5, &calls))
	assert.False(t, it.Next(ctx))
	assert.ErrorIs(t, it.Err(), context.Canceled)
	assert.Zero(t, calls)
}
