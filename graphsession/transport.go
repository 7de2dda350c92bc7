package graphsession

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenPoster posts a form-encoded request to the token endpoint and returns
// the raw response body. It is the session's only outbound HTTP dependency;
// callers who need timeouts impose them through the context or by supplying
// their own implementation.
//
// An error is returned for transport failures only (request construction,
// network, unreadable body). Protocol-level failures such as invalid_grant
// arrive as a JSON body and are handled by the token store.
type TokenPoster interface {
	PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error)
}

// HTTPTokenPoster is the default TokenPoster, backed by an *http.Client.
type HTTPTokenPoster struct {
	Client *http.Client
}

var _ TokenPoster = (*HTTPTokenPoster)(nil)

func (p *HTTPTokenPoster) PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to token endpoint %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	// Non-2xx responses still carry a JSON error body (e.g. invalid_grant on
	// HTTP 400); the body is returned as-is so the token store can apply the
	// save-or-logout rules.
	return body, nil
}
