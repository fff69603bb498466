package lumen

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lumen-io/lumen-go/internal/constants"
)

// ParallelOptions tunes FetchPagesParallel.
type ParallelOptions struct {
	// Concurrency bounds simultaneous in-flight page fetches. Zero uses the
	// engine default.
	Concurrency int
}

// FetchPagesParallel fetches page-numbered pages [first, last] concurrently,
// bounded by an admission gate, and returns them in server page order.
// Cursor-mode specs cannot be parallelized; the spec's cursor must be unset.
func FetchPagesParallel(ctx context.Context, fetcher PageFetcher, path string, spec QuerySpec, first, last int, opts *ParallelOptions) ([]*ListResponse, error) {
	if spec.cursor != "" {
		return nil, ErrCursorWithPage
	}

	concurrency := constants.DefaultConcurrencyLimit
	if opts != nil && opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	if last < first {
		return nil, nil
	}

	pages := make([]*ListResponse, last-first+1)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for pageNum := first; pageNum <= last; pageNum++ {
		slot := pageNum - first
		pageSpec := spec.clone()
		pageSpec.page = pageNum

		group.Go(func() error {
			page, err := fetchPage(groupCtx, fetcher, path, pageSpec)
			if err != nil {
				return err
			}

			pages[slot] = page

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return pages, nil
}
