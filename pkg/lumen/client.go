package lumen

import (
	"context"
)

// EntitiesClient executes queries against one resource path (e.g. "works").
// It is the PageFetcher for queries it creates, so the pagination engine,
// cache, and retry executor all flow through it.
type EntitiesClient interface {
	PageFetcher

	// Query starts a fluent query against this resource.
	Query() Query

	// Get fetches a single record by its identifier.
	Get(ctx context.Context, id string) (Record, error)

	// Random fetches one random record.
	Random(ctx context.Context) (Record, error)

	// List fetches one page for an already-built spec.
	List(ctx context.Context, spec QuerySpec) (*ListResponse, error)

	// ListPages fetches page-numbered pages [first, last] concurrently,
	// bounded by the client's configured MaxConcurrency, and returns them
	// in server page order. The spec must not carry a cursor.
	ListPages(ctx context.Context, spec QuerySpec, first, last int) ([]*ListResponse, error)
}

// Client is one configured connection to the API. All calls through one
// Client share its connection pool, circuit breaker, and cache; separate
// Clients are fully isolated.
type Client interface {
	// Entities returns the client for a resource path such as "works".
	Entities(path string) EntitiesClient

	// InvalidateCache drops every cached response owned by this client.
	InvalidateCache(ctx context.Context) error

	// Close releases the connection pool and any cache backend resources.
	// The client must not be used afterwards.
	Close() error
}
