package graphsession

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-graph-session/internal/errors"
	"github.com/jrsteele09/go-graph-session/internal/utils"
	"github.com/rs/zerolog/log"
)

// Default endpoints for the Microsoft Graph API and the Microsoft identity
// platform. The "common" authority accepts both organizational and personal
// accounts; replace it with a tenant-specific authority to restrict sign-in.
const (
	DefaultResource     = "https://graph.microsoft.com/"
	DefaultAPIVersion   = "v1.0"
	DefaultAuthorityURL = "https://login.microsoftonline.com/common"

	authorizePath = "/oauth2/v2.0/authorize"
	tokenPath     = "/oauth2/v2.0/token"

	// OfflineAccessScope is the scope that makes the provider issue refresh
	// tokens. Its presence in Config.Scopes is controlled by RefreshEnable,
	// never by the caller directly.
	OfflineAccessScope = "offline_access"
)

// Config holds the immutable settings of a Graph session.
// ClientID, ClientSecret and RedirectURI come from the app registration
// portal; RedirectURI must match the value registered there exactly.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Scopes are the permissions requested from the provider. The
	// offline_access scope is normalized at session construction: added when
	// RefreshEnable is set, removed when it is not, regardless of what the
	// caller listed.
	Scopes []string

	Resource     string // base URL for calls to Microsoft Graph
	APIVersion   string // Graph version ("v1.0" or "beta")
	AuthorityURL string // base URL of the authorization authority

	AuthEndpoint  string // authorization endpoint, derived from AuthorityURL by default
	TokenEndpoint string // token endpoint, derived from AuthorityURL by default

	// CacheState persists session state to durable storage, enabling silent
	// SSO across restarts.
	CacheState bool

	// RefreshEnable auto-refreshes expiring access tokens.
	RefreshEnable bool
}

// DefaultConfig returns a Config with the documented Graph defaults.
// ClientID, ClientSecret, RedirectURI and Scopes must still be supplied.
func DefaultConfig() Config {
	return Config{
		Resource:      DefaultResource,
		APIVersion:    DefaultAPIVersion,
		AuthorityURL:  DefaultAuthorityURL,
		AuthEndpoint:  DefaultAuthorityURL + authorizePath,
		TokenEndpoint: DefaultAuthorityURL + tokenPath,
		RefreshEnable: true,
	}
}

// configKeys is the allow-list for FromMap. Keys outside this set are
// warnings, never errors, since they are most likely typos.
var configKeys = map[string]struct{}{
	"client_id":      {},
	"client_secret":  {},
	"redirect_uri":   {},
	"scopes":         {},
	"resource":       {},
	"api_version":    {},
	"authority_url":  {},
	"auth_endpoint":  {},
	"token_endpoint": {},
	"cache_state":    {},
	"refresh_enable": {},
}

// FromMap merges externally supplied key/value overrides (e.g. parsed from a
// settings file) onto DefaultConfig. Unknown keys are logged and ignored.
// When authority_url is overridden without explicit endpoint overrides, the
// authorize and token endpoints are re-derived from the new authority.
func FromMap(overrides map[string]any) Config {
	cfg := DefaultConfig()

	for key := range overrides {
		if _, ok := configKeys[key]; !ok {
			log.Warn().Str("key", key).Msg("unknown configuration key ignored")
		}
	}

	if v, ok := overrides["client_id"].(string); ok {
		cfg.ClientID = v
	}
	if v, ok := overrides["client_secret"].(string); ok {
		cfg.ClientSecret = v
	}
	if v, ok := overrides["redirect_uri"].(string); ok {
		cfg.RedirectURI = v
	}
	switch v := overrides["scopes"].(type) {
	case []string:
		cfg.Scopes = v
	case []any:
		cfg.Scopes = utils.ToStringSlice(v)
	case string:
		cfg.Scopes = strings.Fields(v)
	}
	if v, ok := overrides["resource"].(string); ok {
		cfg.Resource = v
	}
	if v, ok := overrides["api_version"].(string); ok {
		cfg.APIVersion = v
	}
	if v, ok := overrides["authority_url"].(string); ok {
		cfg.AuthorityURL = v
		cfg.AuthEndpoint = v + authorizePath
		cfg.TokenEndpoint = v + tokenPath
	}
	if v, ok := overrides["auth_endpoint"].(string); ok {
		cfg.AuthEndpoint = v
	}
	if v, ok := overrides["token_endpoint"].(string); ok {
		cfg.TokenEndpoint = v
	}
	if v, ok := overrides["cache_state"].(bool); ok {
		cfg.CacheState = v
	}
	if v, ok := overrides["refresh_enable"].(bool); ok {
		cfg.RefreshEnable = v
	}

	return cfg
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return errors.ErrMissingClientID
	}
	if c.RedirectURI == "" {
		return errors.ErrMissingRedirectURI
	}
	return nil
}

// normalizeScopes enforces the offline_access invariant: present iff
// RefreshEnable. RefreshEnable takes precedence over whether the scope was
// explicitly requested. Runs after any override merge so an explicit override
// cannot violate the invariant.
func (c Config) normalizeScopes() []string {
	scopes := make([]string, 0, len(c.Scopes)+1)
	for _, scope := range c.Scopes {
		if strings.EqualFold(scope, OfflineAccessScope) {
			continue
		}
		scopes = append(scopes, scope)
	}
	if c.RefreshEnable {
		scopes = append(scopes, OfflineAccessScope)
	}
	return scopes
}

// APIEndpoint converts a relative endpoint (e.g. "me") to a full Graph API
// URL. Absolute http(s) URLs are returned unchanged, which makes the function
// idempotent. Any number of leading slashes on a relative path produce the
// same result.
func (c Config) APIEndpoint(pathOrURL string) string {
	if u, err := url.Parse(pathOrURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return pathOrURL
	}
	base := strings.TrimRight(c.Resource, "/") + "/" + c.APIVersion + "/"
	return base + strings.TrimLeft(pathOrURL, "/")
}
