package lumen

import (
	"context"
	"errors"

	"github.com/lumen-io/lumen-go/internal/constants"
)

// PageEvent is one streamed page or the error that ended the stream.
type PageEvent struct {
	Page *ListResponse
	Err  error
}

// RecordEvent is one streamed record or the error that ended the stream.
type RecordEvent struct {
	Record Record
	Err    error
}

// StreamPages drives a pagination session in a goroutine and delivers whole
// pages over the returned channel. The channel closes when the session ends,
// after an error event, or when ctx is cancelled. Each call starts an
// independent session.
func StreamPages(ctx context.Context, fetcher PageFetcher, path string, spec QuerySpec) <-chan PageEvent {
	out := make(chan PageEvent, constants.StreamBufferSize)

	go func() {
		defer close(out)

		pager := NewPager(fetcher, path, spec)

		for pager.HasMore() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				if errors.Is(err, ErrNoMoreRecords) {
					return
				}

				select {
				case out <- PageEvent{Err: err}:
				case <-ctx.Done():
				}

				return
			}

			select {
			case out <- PageEvent{Page: page}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// StreamRecords delivers individual records over the returned channel while
// holding only one page in memory. MaxResults on the spec caps the emitted
// record count across page boundaries.
func StreamRecords(ctx context.Context, fetcher PageFetcher, path string, spec QuerySpec) <-chan RecordEvent {
	out := make(chan RecordEvent, constants.StreamBufferSize)

	go func() {
		defer close(out)

		for event := range StreamPages(ctx, fetcher, path, spec) {
			if event.Err != nil {
				select {
				case out <- RecordEvent{Err: event.Err}:
				case <-ctx.Done():
				}

				return
			}

			for _, record := range event.Page.Results {
				select {
				case out <- RecordEvent{Record: record}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
