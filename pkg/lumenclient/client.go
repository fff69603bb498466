// Package lumenclient provides the main entry point for creating Lumen API clients.
package lumenclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumen-io/lumen-go/internal/client"
	"github.com/lumen-io/lumen-go/pkg/lumen"
)

// New creates a new Lumen API client. The base URL is normalized, defaults
// are applied, and the client's connection pool, circuit breaker, and cache
// are created fresh so separate clients never share state.
func New(ctx context.Context, config *lumen.Config) (lumen.Client, error) {
	if config == nil {
		return nil, lumen.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, lumen.ErrBaseURLRequired
	}

	cfg := *config
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)

	c, err := client.New(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewFromFile creates a client from a YAML config file with LUMEN_*
// environment overrides.
func NewFromFile(ctx context.Context, path string) (lumen.Client, error) {
	config, err := lumen.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return New(ctx, config)
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}
