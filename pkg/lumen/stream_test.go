package lumen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-io/lumen-go/pkg/lumen"
)

func TestStreamPages(t *testing.T) {
	t.Parallel()

	pages := 0
	for event := range lumen.StreamPages(context.Background(), cursorFetcher(), "works", lumen.QuerySpec{}) {
		require.NoError(t, event.Err)
		pages++
	}

	assert.Equal(t, 3, pages)
}

func TestStreamPages_ErrorEndsStream(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("boom")}

	var failures int

	for event := range lumen.StreamPages(context.Background(), fetcher, "works", lumen.QuerySpec{}) {
		require.Error(t, event.Err)
		failures++
	}

	assert.Equal(t, 1, failures)
}

func TestStreamRecords(t *testing.T) {
	t.Parallel()

	var ids int

	for event := range lumen.StreamRecords(context.Background(), cursorFetcher(), "works", lumen.QuerySpec{}) {
		require.NoError(t, event.Err)

		ids++
	}

	assert.Equal(t, 5, ids)
}

func TestStreamRecords_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	stream := lumen.StreamRecords(ctx, cursorFetcher(), "works", lumen.QuerySpec{})

	event, ok := <-stream
	require.True(t, ok)
	require.NoError(t, event.Err)

	cancel()

	// The stream must close shortly after cancellation; it may deliver a few
	// already-buffered events first.
	deadline := time.After(2 * time.Second)

	for {
		select {
		case _, open := <-stream:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after context cancellation")
		}
	}
}

func TestStreamRecords_MaxResults(t *testing.T) {
	t.Parallel()

	fetcher := cursorFetcher()
	spec := lumen.NewQuery(fetcher, "works").MaxResults(3).Spec()

	var count int

	for event := range lumen.StreamRecords(context.Background(), fetcher, "works", spec) {
		require.NoError(t, event.Err)

		count++
	}

	assert.Equal(t, 3, count)
}
