package lumen

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// QuerySpec is the immutable description of one logical list request. Builder
// methods on Query copy the spec before extending it, so a Query can be
// forked freely: chains started from a shared base never interfere.
type QuerySpec struct {
	filters    map[string]FilterValue
	search     string
	sorts      []SortKey
	selects    []string
	groupBy    []string
	sample     int
	seed       int
	hasSeed    bool
	page       int
	perPage    int
	cursor     string
	maxResults int
	err        error
}

func (s QuerySpec) clone() QuerySpec {
	out := s

	out.filters = make(map[string]FilterValue, len(s.filters))
	for key, value := range s.filters {
		out.filters[key] = value
	}

	out.sorts = append([]SortKey(nil), s.sorts...)
	out.selects = append([]string(nil), s.selects...)
	out.groupBy = append([]string(nil), s.groupBy...)

	return out
}

// Err returns the first validation error recorded while building the spec.
func (s QuerySpec) Err() error {
	return s.err
}

// Values renders the spec as unescaped url.Values. Use Encode for the wire
// form, which preserves comparison operators unescaped.
func (s QuerySpec) Values() (url.Values, error) {
	if s.err != nil {
		return nil, s.err
	}

	if s.cursor != "" && s.page > 0 {
		return nil, ErrCursorWithPage
	}

	values := url.Values{}

	if len(s.filters) > 0 {
		pairs, err := flattenFilters(s.filters)
		if err != nil {
			return nil, err
		}

		values.Set("filter", strings.Join(pairs, ","))
	}

	if s.search != "" {
		values.Set("search", s.search)
	}

	if len(s.sorts) > 0 {
		parts := make([]string, 0, len(s.sorts))

		for _, key := range s.sorts {
			if key.Direction == SortDesc {
				parts = append(parts, key.Field+":desc")
			} else {
				parts = append(parts, key.Field)
			}
		}

		values.Set("sort", strings.Join(parts, ","))
	}

	if len(s.selects) > 0 {
		fields := append([]string(nil), s.selects...)
		sort.Strings(fields)
		values.Set("select", strings.Join(fields, ","))
	}

	if len(s.groupBy) > 0 {
		values.Set("group_by", strings.Join(s.groupBy, ","))
	}

	if s.sample > 0 {
		values.Set("sample", strconv.Itoa(s.sample))

		if s.hasSeed {
			values.Set("seed", strconv.Itoa(s.seed))
		}
	}

	if s.page > 0 {
		values.Set("page", strconv.Itoa(s.page))
	}

	if s.perPage > 0 {
		values.Set("per_page", strconv.Itoa(s.perPage))
	}

	if s.cursor != "" {
		values.Set("cursor", s.cursor)
	}

	return values, nil
}

// Encode renders the canonical wire query string: parameters sorted by name,
// operator characters kept literal, spaces percent-encoded.
func (s QuerySpec) Encode() (string, error) {
	values, err := s.Values()
	if err != nil {
		return "", err
	}

	return EncodeValues(values), nil
}

// IsGrouped reports whether the spec carries a group_by clause.
func (s QuerySpec) IsGrouped() bool {
	return len(s.groupBy) > 0
}

// Page returns the requested page number, 0 when unset.
func (s QuerySpec) Page() int { return s.page }

// PerPage returns the requested page size, 0 when unset.
func (s QuerySpec) PerPage() int { return s.perPage }

// Cursor returns the pagination cursor, empty when unset.
func (s QuerySpec) Cursor() string { return s.cursor }

// MaxResults returns the session-level cap on emitted records, 0 for none.
func (s QuerySpec) MaxResults() int { return s.maxResults }

// Query accumulates a QuerySpec against one resource path and executes it
// through a PageFetcher. All builder methods return a new Query value.
type Query struct {
	fetcher PageFetcher
	path    string
	spec    QuerySpec
}

// NewQuery creates a query for the given resource path. The fetcher may be
// nil when the query is only serialized, never executed.
func NewQuery(fetcher PageFetcher, path string) Query {
	return Query{
		fetcher: fetcher,
		path:    path,
		spec:    QuerySpec{filters: map[string]FilterValue{}},
	}
}

// Spec returns the accumulated immutable spec.
func (q Query) Spec() QuerySpec {
	return q.spec.clone()
}

// Path returns the resource path the query targets.
func (q Query) Path() string {
	return q.path
}

func (q Query) extend(mutate func(*QuerySpec)) Query {
	next := q
	next.spec = q.spec.clone()
	mutate(&next.spec)

	return next
}

func (q Query) fail(err error) Query {
	return q.extend(func(spec *QuerySpec) {
		if spec.err == nil {
			spec.err = err
		}
	})
}

// Filter adds an equality filter. A later Filter on the same field replaces
// the previous value; use FilterOr to extend into an OR-list instead.
func (q Query) Filter(field string, value interface{}) Query {
	node, err := newFilterValue(value)
	if err != nil {
		return q.fail(&InvalidFilterError{Field: field, Reason: err.Error()})
	}

	return q.extend(func(spec *QuerySpec) {
		spec.filters[field] = node
	})
}

// FilterGT adds a greater-than comparison filter.
func (q Query) FilterGT(field string, value interface{}) Query {
	return q.Filter(field, GreaterThan(value))
}

// FilterLT adds a less-than comparison filter.
func (q Query) FilterLT(field string, value interface{}) Query {
	return q.Filter(field, LessThan(value))
}

// FilterNot adds a negated equality filter.
func (q Query) FilterNot(field string, value interface{}) Query {
	return q.Filter(field, Not(value))
}

// FilterOr extends the filter on field into an OR-list. An existing scalar
// value for the field becomes the first OR member; an existing OR-list grows.
func (q Query) FilterOr(field string, value interface{}) Query {
	node, err := newFilterValue(value)
	if err != nil {
		return q.fail(&InvalidFilterError{Field: field, Reason: err.Error()})
	}

	return q.extend(func(spec *QuerySpec) {
		existing, ok := spec.filters[field]
		if !ok {
			spec.filters[field] = filterOr{values: []FilterValue{node}}

			return
		}

		if or, isOr := existing.(filterOr); isOr {
			members := append(append([]FilterValue(nil), or.values...), node)
			spec.filters[field] = filterOr{values: members}

			return
		}

		spec.filters[field] = filterOr{values: []FilterValue{existing, node}}
	})
}

// Search sets the full-text search term.
func (q Query) Search(term string) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.search = term
	})
}

// SearchField adds a per-field search filter (field.search:term).
func (q Query) SearchField(field, term string) Query {
	return q.Filter(field+".search", term)
}

// Sort appends a sort key. Order across calls is preserved on the wire.
func (q Query) Sort(field string, direction SortDirection) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.sorts = append(spec.sorts, SortKey{Field: field, Direction: direction})
	})
}

// Select restricts returned record fields. Fields accumulate as a set.
func (q Query) Select(fields ...string) Query {
	return q.extend(func(spec *QuerySpec) {
		for _, field := range fields {
			if !containsString(spec.selects, field) {
				spec.selects = append(spec.selects, field)
			}
		}
	})
}

// GroupBy aggregates results into per-value buckets instead of records. At
// most two fields are supported; the first is the primary grouping.
func (q Query) GroupBy(fields ...string) Query {
	next := q.extend(func(spec *QuerySpec) {
		spec.groupBy = append(spec.groupBy, fields...)
	})

	if len(next.spec.groupBy) > 2 {
		return q.fail(&InvalidGroupByError{
			Fields: next.spec.groupBy,
			Reason: "at most two group_by fields are supported",
		})
	}

	return next
}

// Sample requests a random sample of n records.
func (q Query) Sample(n int) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.sample = n
	})
}

// Seed fixes the sampling seed for reproducible samples.
func (q Query) Seed(seed int) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.seed = seed
		spec.hasSeed = true
	})
}

// Page selects page-number pagination for the next fetch.
func (q Query) Page(page int) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.page = page
	})
}

// PerPage sets the page size.
func (q Query) PerPage(perPage int) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.perPage = perPage
	})
}

// Cursor selects cursor pagination. Cursor and Page are mutually exclusive
// within one spec.
func (q Query) Cursor(cursor string) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.cursor = cursor
	})
}

// MaxResults caps the total records emitted by All, Iter, and Stream,
// regardless of page boundaries.
func (q Query) MaxResults(limit int) Query {
	return q.extend(func(spec *QuerySpec) {
		spec.maxResults = limit
	})
}

// Get fetches exactly one page for the accumulated spec.
func (q Query) Get(ctx context.Context) (*ListResponse, error) {
	if q.spec.err != nil {
		return nil, q.spec.err
	}

	return fetchPage(ctx, q.fetcher, q.path, q.spec)
}

// Count returns the total matching record count via a minimal probe page.
// The probe always uses page-number pagination; a cursor on the spec is
// ignored since it does not change the total.
func (q Query) Count(ctx context.Context) (int, error) {
	probe := q.extend(func(spec *QuerySpec) {
		spec.cursor = ""
		spec.page = 1
		spec.perPage = 1
	})

	page, err := probe.Get(ctx)
	if err != nil {
		return 0, err
	}

	return page.Meta.Count, nil
}

// Groups executes a group_by spec and returns the aggregate buckets.
func (q Query) Groups(ctx context.Context) ([]Group, error) {
	if !q.spec.IsGrouped() {
		return nil, ErrNotGroupByQuery
	}

	page, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}

	return page.GroupBy, nil
}

// All drains the query through cursor pagination and returns every record,
// honoring MaxResults.
func (q Query) All(ctx context.Context) ([]Record, error) {
	return q.Iter(ctx).All()
}

// Iter returns a pull-based record iterator (sync facade). Each call starts
// an independent pagination session.
func (q Query) Iter(ctx context.Context) *RecordIterator {
	return NewRecordIterator(ctx, q.fetcher, q.path, q.spec)
}

// Pager returns a page-at-a-time cursor pager.
func (q Query) Pager() *Pager {
	return NewPager(q.fetcher, q.path, q.spec)
}

// Pages streams whole pages over a channel (async facade).
func (q Query) Pages(ctx context.Context) <-chan PageEvent {
	return StreamPages(ctx, q.fetcher, q.path, q.spec)
}

// Stream streams individual records over a channel (async facade).
func (q Query) Stream(ctx context.Context) <-chan RecordEvent {
	return StreamRecords(ctx, q.fetcher, q.path, q.spec)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}
