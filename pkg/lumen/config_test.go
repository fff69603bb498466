package lumen_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-io/lumen-go/pkg/lumen"
)

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := lumen.Config{BaseURL: "https://api.lumen.io"}.WithDefaults()

	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.InDelta(t, 2.0, cfg.BackoffBase, 0.001)
	assert.Equal(t, 5, cfg.CircuitThreshold)
	assert.Equal(t, 30*time.Second, cfg.CircuitCooldown)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxSize)

	// Explicit values survive.
	custom := lumen.Config{BaseURL: "x", MaxRetries: 7, CacheTTL: time.Hour}.WithDefaults()
	assert.Equal(t, 7, custom.MaxRetries)
	assert.Equal(t, time.Hour, custom.CacheTTL)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	err := lumen.Config{}.Validate()
	require.ErrorIs(t, err, lumen.ErrBaseURLRequired)

	require.NoError(t, lumen.Config{BaseURL: "https://api.lumen.io"}.Validate())
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lumen.yaml")

	original := lumen.Config{
		BaseURL:        "https://api.lumen.io",
		Email:          "team@example.org",
		UserAgent:      "lumen-test",
		MaxRetries:     5,
		HTTPTimeout:    10 * time.Second,
		CacheEnabled:   true,
		CacheTTL:       2 * time.Minute,
		InitialBackoff: time.Second,
	}

	require.NoError(t, original.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := lumen.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, original.BaseURL, loaded.BaseURL)
	assert.Equal(t, original.Email, loaded.Email)
	assert.Equal(t, original.UserAgent, loaded.UserAgent)
	assert.Equal(t, original.MaxRetries, loaded.MaxRetries)
	assert.Equal(t, original.HTTPTimeout, loaded.HTTPTimeout)
	assert.True(t, loaded.CacheEnabled)
	assert.Equal(t, original.CacheTTL, loaded.CacheTTL)
	assert.Equal(t, original.InitialBackoff, loaded.InitialBackoff)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("LUMEN_BASE_URL", "https://env.lumen.io")
	t.Setenv("LUMEN_MAX_RETRIES", "9")

	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, lumen.Config{BaseURL: "https://file.lumen.io", MaxRetries: 2}.Save(path))

	loaded, err := lumen.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.lumen.io", loaded.BaseURL)
	assert.Equal(t, 9, loaded.MaxRetries)
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("LUMEN_BASE_URL", "https://env-only.lumen.io")
	t.Setenv("LUMEN_EMAIL", "env@example.org")

	loaded, err := lumen.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://env-only.lumen.io", loaded.BaseURL)
	assert.Equal(t, "env@example.org", loaded.Email)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := lumen.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
