package graphsession

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Endpoints holds the authorize and token endpoint URLs of an authority.
type Endpoints struct {
	AuthURL  string
	TokenURL string
}

// DiscoverEndpoints resolves the authorize and token endpoints from the
// authority's OIDC discovery document, instead of relying on the well-known
// Microsoft paths. Useful for sovereign clouds and B2C authorities whose
// endpoint layout differs.
func DiscoverEndpoints(ctx context.Context, authorityURL string) (Endpoints, error) {
	provider, err := oidc.NewProvider(ctx, authorityURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("discover endpoints for %q: %w", authorityURL, err)
	}

	endpoint := provider.Endpoint()
	return endpointsFrom(endpoint), nil
}

func endpointsFrom(endpoint oauth2.Endpoint) Endpoints {
	return Endpoints{
		AuthURL:  endpoint.AuthURL,
		TokenURL: endpoint.TokenURL,
	}
}

// ApplyEndpoints overrides the configured authorize and token endpoints with
// discovered values. Empty fields leave the configured value in place.
func (c *Config) ApplyEndpoints(endpoints Endpoints) {
	if endpoints.AuthURL != "" {
		c.AuthEndpoint = endpoints.AuthURL
	}
	if endpoints.TokenURL != "" {
		c.TokenEndpoint = endpoints.TokenURL
	}
}
