// Package lumen provides the types, query builder, cache, and pagination
// engine for working with the Lumen Scholarly Index API.
//
// # Overview
//
// The lumen package defines the public surface of the client: the immutable
// Config, the fluent Query builder, typed errors, the Cache abstraction with
// memory/Redis/NATS backends, and the pagination engine (pagers, record
// iterators, channel streams, and a bounded parallel fetcher). A concrete
// Client implementation is provided by the lumenclient package, which wires
// configuration, transport, retries, and caching. Most consumers should
// import lumenclient to construct a client and then work with the interfaces
// exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/lumen-io/lumen-go/pkg/lumen"
//	  "github.com/lumen-io/lumen-go/pkg/lumenclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := lumenclient.New(ctx, &lumen.Config{BaseURL: "https://api.lumen.io"})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  page, err := cli.Entities("works").Query().
//	    Filter("publication_year", 2023).
//	    FilterGT("cited_by_count", 100).
//	    Sort("cited_by_count", lumen.SortDesc).
//	    PerPage(50).
//	    Get(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = page
//	}
//
// # Queries
//
// Every builder method returns a new Query value; chains forked from a shared
// base never interfere, so a base query can be reused concurrently. Filters
// form a typed tree: scalar equality, comparisons (GreaterThan, LessThan,
// Not, Between, Null), OR-lists (AnyOf / FilterOr), and nested maps that
// flatten to dotted paths on the wire.
//
// # Pagination
//
// One page: Query.Get. Everything: Query.All or Query.Iter (a pull iterator
// holding one page in memory). Channel streams: Query.Pages / Query.Stream.
// MaxResults caps emitted records across page boundaries. Page-number access
// past the server's offset ceiling fails with ErrOffsetLimit; a stalled
// cursor terminates with *PaginationStalledError instead of looping.
//
// # Errors
//
// Failures are typed: *NotFoundError, *RateLimitError, *ServerError,
// *CircuitOpenError, *PaginationStalledError, *InvalidFilterError,
// *InvalidGroupByError, and *APIError for anything else. Helpers such as
// IsNotFound and IsCircuitOpen make branching easy.
//
// # Caching
//
// Caching is off by default and enabled per configuration. Each client owns
// an isolated cache keyed by the canonical serialized query, so clients with
// different base URLs or credentials never observe each other's entries.
package lumen
