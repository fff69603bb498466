package lumenclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-io/lumen-go/pkg/lumen"
	"github.com/lumen-io/lumen-go/pkg/lumenclient"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := lumenclient.New(context.Background(), nil)
	require.ErrorIs(t, err, lumen.ErrConfigRequired)

	_, err = lumenclient.New(context.Background(), &lumen.Config{})
	require.ErrorIs(t, err, lumen.ErrBaseURLRequired)
}

func TestNew_EndToEnd(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		_, _ = w.Write([]byte(`{"meta":{"count":42},"results":[{"id":"W1"}]}`))
	}))
	defer server.Close()

	client, err := lumenclient.New(context.Background(), &lumen.Config{BaseURL: server.URL})
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	count, err := client.Entities("works").Query().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	t.Parallel()

	// Scheme-less and trailing-slash URLs are accepted; the client dials the
	// normalized form. https://-prefixed dial fails fast against a bogus
	// host, which is enough to prove the constructor accepted the input.
	client, err := lumenclient.New(context.Background(), &lumen.Config{
		BaseURL:        "api.lumen.invalid/",
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	_, err = client.Entities("works").Query().Get(context.Background())
	require.Error(t, err)
}

func TestNewFromFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"count":0}}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, lumen.Config{BaseURL: server.URL}.Save(path))

	client, err := lumenclient.NewFromFile(context.Background(), path)
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	_, err = client.Entities("works").Query().Get(context.Background())
	require.NoError(t, err)

	_, err = lumenclient.NewFromFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
