package lumen

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumen-io/lumen-go/internal/constants"
)

// PageFetcher fetches one page for a resource path and spec. It is the
// engine's only capability requirement: the concrete client provides caching,
// retries, and transport behind it.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string, spec QuerySpec) (*ListResponse, error)
}

// ErrNoFetcher is returned when a query built for serialization only is executed.
var ErrNoFetcher = errors.New("query has no page fetcher")

// fetchPage validates session-level limits and delegates to the fetcher.
// The offset guard rejects page*per_page combinations the server would answer
// with silently empty pages.
func fetchPage(ctx context.Context, fetcher PageFetcher, path string, spec QuerySpec) (*ListResponse, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}

	if err := spec.Err(); err != nil {
		return nil, err
	}

	if spec.page > 0 {
		perPage := spec.perPage
		if perPage == 0 {
			perPage = constants.DefaultPerPage
		}

		if spec.page*perPage > constants.MaxOffset {
			return nil, fmt.Errorf("%w: page %d with per_page %d exceeds offset %d",
				ErrOffsetLimit, spec.page, perPage, constants.MaxOffset)
		}
	}

	return fetcher.FetchPage(ctx, path, spec)
}

// Pager drives one cursor-mode pagination session. It is not safe for
// concurrent use; start one Pager per session.
type Pager struct {
	fetcher PageFetcher
	path    string
	spec    QuerySpec

	cursor   string
	pageMode bool
	done     bool
	emitted  int
}

// NewPager creates a pagination session for the spec. A spec carrying a page
// number runs in page mode and yields exactly that page; otherwise the pager
// starts (or resumes) a cursor session.
func NewPager(fetcher PageFetcher, path string, spec QuerySpec) *Pager {
	pager := &Pager{
		fetcher: fetcher,
		path:    path,
		spec:    spec.clone(),
	}

	if spec.page > 0 {
		pager.pageMode = true

		return pager
	}

	pager.cursor = spec.cursor
	if pager.cursor == "" {
		pager.cursor = constants.CursorStart
	}

	return pager
}

// HasMore reports whether NextPage may yield another page.
func (p *Pager) HasMore() bool {
	return !p.done
}

// NextPage fetches the next page in the session. It returns ErrNoMoreRecords
// once the session is exhausted, and a *PaginationStalledError if the server
// repeats a cursor instead of advancing it.
func (p *Pager) NextPage(ctx context.Context) (*ListResponse, error) {
	if p.done {
		return nil, ErrNoMoreRecords
	}

	spec := p.spec.clone()

	if p.pageMode {
		p.done = true
	} else {
		spec.page = 0
		spec.cursor = p.cursor
	}

	page, err := fetchPage(ctx, p.fetcher, p.path, spec)
	if err != nil {
		p.done = true

		return nil, err
	}

	if !p.pageMode {
		next := page.Meta.NextCursor

		switch {
		case next == "":
			p.done = true
		case next == p.cursor:
			p.done = true

			return nil, &PaginationStalledError{Path: p.path, Cursor: next}
		default:
			p.cursor = next
		}

		if len(page.Results) == 0 && len(page.GroupBy) == 0 {
			p.done = true
		}
	}

	if limit := p.spec.maxResults; limit > 0 {
		remaining := limit - p.emitted
		if remaining <= 0 {
			p.done = true

			return nil, ErrNoMoreRecords
		}

		if len(page.Results) > remaining {
			page.Results = page.Results[:remaining]
			p.done = true
		}
	}

	p.emitted += len(page.Results)

	return page, nil
}

// RecordIterator exposes a pagination session record by record, holding at
// most one page in memory.
type RecordIterator struct {
	ctx    context.Context
	pager  *Pager
	buffer []Record
	err    error
}

// NewRecordIterator starts an independent record-streaming session.
func NewRecordIterator(ctx context.Context, fetcher PageFetcher, path string, spec QuerySpec) *RecordIterator {
	return &RecordIterator{
		ctx:   ctx,
		pager: NewPager(fetcher, path, spec),
	}
}

// HasNext reports whether Next will return a record. It fetches ahead one
// page when the buffer is empty.
func (it *RecordIterator) HasNext() bool {
	if it.err != nil {
		return false
	}

	for len(it.buffer) == 0 {
		if !it.pager.HasMore() {
			return false
		}

		page, err := it.pager.NextPage(it.ctx)
		if err != nil {
			if !errors.Is(err, ErrNoMoreRecords) {
				it.err = err
			}

			return false
		}

		it.buffer = page.Results
	}

	return true
}

// Next returns the next record, or ErrNoMoreRecords when the session is
// exhausted. Any fetch error from HasNext is surfaced here.
func (it *RecordIterator) Next() (Record, error) {
	if !it.HasNext() {
		if it.err != nil {
			return nil, it.err
		}

		return nil, ErrNoMoreRecords
	}

	record := it.buffer[0]
	it.buffer = it.buffer[1:]

	return record, nil
}

// Err returns the first error encountered while iterating.
func (it *RecordIterator) Err() error {
	return it.err
}

// All drains the iterator into a slice.
func (it *RecordIterator) All() ([]Record, error) {
	var records []Record

	for it.HasNext() {
		record, err := it.Next()
		if err != nil {
			return records, err
		}

		records = append(records, record)
	}

	if it.err != nil {
		return records, it.err
	}

	return records, nil
}

// ForEach applies fn to every remaining record, stopping on the first error.
func (it *RecordIterator) ForEach(fn func(Record) error) error {
	for it.HasNext() {
		record, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(record)
		if err != nil {
			return err
		}
	}

	return it.err
}
