package lumen_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-io/lumen-go/pkg/lumen"
)

// fakeFetcher serves pre-built pages keyed by cursor, mimicking a cursor
// session. Page-mode requests are answered by pageFn when set.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]*lumen.ListResponse
	pageFn func(page int) (*lumen.ListResponse, error)
	calls  int
	err    error
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ string, spec lumen.QuerySpec) (*lumen.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	if spec.Page() > 0 {
		if f.pageFn != nil {
			return f.pageFn(spec.Page())
		}

		return nil, fmt.Errorf("unexpected page request: %d", spec.Page())
	}

	page, ok := f.pages[spec.Cursor()]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor: %q", spec.Cursor())
	}

	// Copy so MaxResults truncation never mutates the fixture.
	out := *page
	out.Results = append([]lumen.Record(nil), page.Results...)

	return &out, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func records(ids ...string) []lumen.Record {
	out := make([]lumen.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, lumen.Record(fmt.Sprintf(`{"id":%q}`, id)))
	}

	return out
}

func cursorFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]*lumen.ListResponse{
			"*": {
				Meta:    lumen.Meta{Count: 5, NextCursor: "c2"},
				Results: records("w1", "w2"),
			},
			"c2": {
				Meta:    lumen.Meta{Count: 5, NextCursor: "c3"},
				Results: records("w3", "w4"),
			},
			"c3": {
				Meta:    lumen.Meta{Count: 5},
				Results: records("w5"),
			},
		},
	}
}

func TestPager_CursorSession(t *testing.T) {
	t.Parallel()

	fetcher := cursorFetcher()
	pager := lumen.NewPager(fetcher, "works", lumen.QuerySpec{})
	ctx := context.Background()

	var all []lumen.Record

	for pager.HasMore() {
		page, err := pager.NextPage(ctx)
		if errors.Is(err, lumen.ErrNoMoreRecords) {
			break
		}

		require.NoError(t, err)

		all = append(all, page.Results...)
	}

	assert.Len(t, all, 5)
	assert.Equal(t, 3, fetcher.callCount())

	_, err := pager.NextPage(ctx)
	require.ErrorIs(t, err, lumen.ErrNoMoreRecords)
}

func TestPager_PageModeYieldsOnePage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pageFn: func(page int) (*lumen.ListResponse, error) {
			return &lumen.ListResponse{
				Meta:    lumen.Meta{Count: 100, Page: page},
				Results: records("w1", "w2"),
			}, nil
		},
	}

	spec := lumen.NewQuery(fetcher, "works").Page(3).Spec()
	pager := lumen.NewPager(fetcher, "works", spec)

	page, err := pager.NextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, page.Meta.Page)
	assert.False(t, pager.HasMore())

	_, err = pager.NextPage(context.Background())
	require.ErrorIs(t, err, lumen.ErrNoMoreRecords)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPager_StalledCursor(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]*lumen.ListResponse{
			"*": {
				Meta:    lumen.Meta{Count: 10, NextCursor: "stuck"},
				Results: records("w1"),
			},
			"stuck": {
				Meta:    lumen.Meta{Count: 10, NextCursor: "stuck"},
				Results: records("w2"),
			},
		},
	}

	pager := lumen.NewPager(fetcher, "works", lumen.QuerySpec{})
	ctx := context.Background()

	_, err := pager.NextPage(ctx)
	require.NoError(t, err)

	_, err = pager.NextPage(ctx)
	require.Error(t, err)
	assert.True(t, lumen.IsPaginationStalled(err))

	var stalled *lumen.PaginationStalledError

	require.ErrorAs(t, err, &stalled)
	assert.Equal(t, "works", stalled.Path)
	assert.Equal(t, "stuck", stalled.Cursor)
	assert.False(t, pager.HasMore())
}

func TestPager_MaxResultsTruncates(t *testing.T) {
	t.Parallel()

	fetcher := cursorFetcher()
	spec := lumen.NewQuery(fetcher, "works").MaxResults(3).Spec()
	pager := lumen.NewPager(fetcher, "works", spec)
	ctx := context.Background()

	first, err := pager.NextPage(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Results, 2)

	second, err := pager.NextPage(ctx)
	require.NoError(t, err)
	assert.Len(t, second.Results, 1)
	assert.False(t, pager.HasMore())
}

func TestPager_EmptyFirstPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]*lumen.ListResponse{
			"*": {Meta: lumen.Meta{Count: 0}},
		},
	}

	pager := lumen.NewPager(fetcher, "works", lumen.QuerySpec{})

	page, err := pager.NextPage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.False(t, pager.HasMore())
}

func TestFetchPage_OffsetGuard(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}

	t.Run("page times per_page beyond maximum", func(t *testing.T) {
		t.Parallel()

		query := lumen.NewQuery(fetcher, "works").Page(101).PerPage(100)

		_, err := query.Get(context.Background())
		require.ErrorIs(t, err, lumen.ErrOffsetLimit)
		assert.Equal(t, 0, fetcher.callCount())
	})

	t.Run("default per_page applies", func(t *testing.T) {
		t.Parallel()

		// 401 * 25 > 10000
		query := lumen.NewQuery(fetcher, "works").Page(401)

		_, err := query.Get(context.Background())
		require.ErrorIs(t, err, lumen.ErrOffsetLimit)
	})
}

func TestRecordIterator(t *testing.T) {
	t.Parallel()

	t.Run("drains all pages", func(t *testing.T) {
		t.Parallel()

		it := lumen.NewRecordIterator(context.Background(), cursorFetcher(), "works", lumen.QuerySpec{})

		all, err := it.All()
		require.NoError(t, err)
		require.Len(t, all, 5)

		var first struct {
			ID string `json:"id"`
		}

		require.NoError(t, json.Unmarshal(all[0], &first))
		assert.Equal(t, "w1", first.ID)
	})

	t.Run("next after exhaustion", func(t *testing.T) {
		t.Parallel()

		it := lumen.NewRecordIterator(context.Background(), cursorFetcher(), "works", lumen.QuerySpec{})

		_, err := it.All()
		require.NoError(t, err)

		_, err = it.Next()
		require.ErrorIs(t, err, lumen.ErrNoMoreRecords)
	})

	t.Run("surfaces fetch errors", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{err: errors.New("boom")}
		it := lumen.NewRecordIterator(context.Background(), fetcher, "works", lumen.QuerySpec{})

		assert.False(t, it.HasNext())
		require.Error(t, it.Err())

		_, err := it.Next()
		require.EqualError(t, err, "boom")
	})

	t.Run("for each stops on callback error", func(t *testing.T) {
		t.Parallel()

		it := lumen.NewRecordIterator(context.Background(), cursorFetcher(), "works", lumen.QuerySpec{})

		seen := 0
		stop := errors.New("stop")

		err := it.ForEach(func(lumen.Record) error {
			seen++
			if seen == 2 {
				return stop
			}

			return nil
		})

		require.ErrorIs(t, err, stop)
		assert.Equal(t, 2, seen)
	})

	t.Run("max results caps emission", func(t *testing.T) {
		t.Parallel()

		fetcher := cursorFetcher()
		spec := lumen.NewQuery(fetcher, "works").MaxResults(4).Spec()
		it := lumen.NewRecordIterator(context.Background(), fetcher, "works", spec)

		all, err := it.All()
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}

func TestQuery_AllAndCount(t *testing.T) {
	t.Parallel()

	fetcher := cursorFetcher()
	fetcher.pageFn = func(page int) (*lumen.ListResponse, error) {
		return &lumen.ListResponse{Meta: lumen.Meta{Count: 5, Page: page}}, nil
	}

	query := lumen.NewQuery(fetcher, "works")

	all, err := query.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 5)

	count, err := query.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

// A cursor on the spec does not change the total, so Count probes with page
// pagination instead of failing on the cursor/page exclusivity rule.
func TestQuery_CountIgnoresCursor(t *testing.T) {
	t.Parallel()

	fetcher := cursorFetcher()
	fetcher.pageFn = func(page int) (*lumen.ListResponse, error) {
		return &lumen.ListResponse{Meta: lumen.Meta{Count: 5, Page: page}}, nil
	}

	count, err := lumen.NewQuery(fetcher, "works").Cursor("c2").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
