package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lumen-io/lumen-go/pkg/lumen"
)

// EntitiesClient executes queries against a single resource path. It is the
// lumen.PageFetcher for every query it creates, so list requests flow
// through the cache and the retry executor in one place.
type EntitiesClient struct {
	parent *Client
	path   string
}

func newEntitiesClient(parent *Client, path string) *EntitiesClient {
	return &EntitiesClient{parent: parent, path: path}
}

// Query starts a fluent query against this resource.
func (e *EntitiesClient) Query() lumen.Query {
	return lumen.NewQuery(e, e.path)
}

// FetchPage implements lumen.PageFetcher. Pages are served from the cache
// when enabled; concurrent identical fetches are collapsed by the cache
// manager.
func (e *EntitiesClient) FetchPage(ctx context.Context, path string, spec lumen.QuerySpec) (*lumen.ListResponse, error) {
	rawQuery, err := spec.Encode()
	if err != nil {
		return nil, err
	}

	if e.parent.cache == nil {
		return e.fetchPage(ctx, path, rawQuery)
	}

	key, err := e.parent.cache.Key(e.parent.config.BaseURL, path, spec)
	if err != nil {
		return nil, err
	}

	return e.parent.cache.GetOrFetch(ctx, key, func() (*lumen.ListResponse, error) {
		return e.fetchPage(ctx, path, rawQuery)
	})
}

func (e *EntitiesClient) fetchPage(ctx context.Context, path, rawQuery string) (*lumen.ListResponse, error) {
	resp, err := e.parent.httpClient.Get(ctx, path, rawQuery)
	if err != nil {
		return nil, err
	}

	var page lumen.ListResponse

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, fmt.Errorf("parsing list response for %s: %w", path, err)
	}

	return &page, nil
}

// List fetches one page for an already-built spec.
func (e *EntitiesClient) List(ctx context.Context, spec lumen.QuerySpec) (*lumen.ListResponse, error) {
	return e.FetchPage(ctx, e.path, spec)
}

// ListPages fetches page-numbered pages [first, last] concurrently. In-flight
// requests are bounded by the client's configured MaxConcurrency.
func (e *EntitiesClient) ListPages(ctx context.Context, spec lumen.QuerySpec, first, last int) ([]*lumen.ListResponse, error) {
	opts := &lumen.ParallelOptions{Concurrency: e.parent.config.MaxConcurrency}

	return lumen.FetchPagesParallel(ctx, e, e.path, spec, first, last, opts)
}

// Get fetches a single record by identifier. Single-record reads bypass the
// page cache.
func (e *EntitiesClient) Get(ctx context.Context, id string) (lumen.Record, error) {
	if id == "" {
		return nil, &lumen.InvalidFilterError{Field: "id", Reason: "must not be empty"}
	}

	resp, err := e.parent.httpClient.Get(ctx, e.path+"/"+url.PathEscape(id), "")
	if err != nil {
		return nil, err
	}

	return lumen.Record(resp.Body), nil
}

// Random fetches one random record from this resource.
func (e *EntitiesClient) Random(ctx context.Context) (lumen.Record, error) {
	resp, err := e.parent.httpClient.Get(ctx, e.path+"/random", "")
	if err != nil {
		return nil, err
	}

	return lumen.Record(resp.Body), nil
}
