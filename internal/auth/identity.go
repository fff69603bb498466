// Package auth attaches caller identity to outgoing requests. The Lumen API
// has no token exchange; identity is carried as query parameters, which
// grants polite-pool scheduling (mailto) and raised rate limits (api_key).
package auth

import (
	"context"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	internalhttp "github.com/lumen-io/lumen-go/internal/http"
)

// Identity holds the optional caller credentials.
type Identity struct {
	Email  string
	APIKey string
}

// Empty reports whether no identity information is configured.
func (i Identity) Empty() bool {
	return i.Email == "" && i.APIKey == ""
}

// Apply appends identity parameters to the request's raw query. The query is
// already encoded in canonical form, so parameters are appended rather than
// re-encoded through url.Values, which would mangle operator characters.
func (i Identity) Apply(req *retryablehttp.Request) {
	if i.Empty() {
		return
	}

	var parts []string
	if req.URL.RawQuery != "" {
		parts = append(parts, req.URL.RawQuery)
	}

	if i.Email != "" {
		parts = append(parts, "mailto="+url.QueryEscape(i.Email))
	}

	if i.APIKey != "" {
		parts = append(parts, "api_key="+url.QueryEscape(i.APIKey))
	}

	req.URL.RawQuery = strings.Join(parts, "&")
}

// Hook adapts the identity into a transport request hook.
func (i Identity) Hook() internalhttp.RequestHook {
	return func(_ context.Context, req *retryablehttp.Request) error {
		i.Apply(req)

		return nil
	}
}
