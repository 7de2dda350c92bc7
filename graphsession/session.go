// Package graphsession implements the OAuth 2.0 Authorization Code Grant
// workflow against the Microsoft identity platform: acquiring, validating,
// caching and refreshing the access token used to authorize calls to
// Microsoft Graph.
package graphsession

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-graph-session/graphsession/statestore"
	"github.com/jrsteele09/go-graph-session/internal/errors"
	"github.com/jrsteele09/go-graph-session/internal/utils"
	"github.com/jrsteele09/go-graph-session/oauth2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// defaultMinTokenLife is the remaining lifetime below which a restored token
// is refreshed before first use.
const defaultMinTokenLife = 5 * time.Second

// sessionState is the mutable record of the current credentials and their
// validity window. A nil accessToken means logged out; a nil refreshToken
// means no refresh token has been issued for this session.
type sessionState struct {
	accessToken    *string
	refreshToken   *string
	tokenExpiresAt time.Time
	tokenScope     string
	loggedIn       bool
}

// Session is a Graph connection for a single logical user. It is explicitly
// constructed and explicitly owned; serving multiple concurrent users
// requires one Session per user (see Manager). A Session must not be shared
// across concurrent requests.
type Session struct {
	cfg    Config
	store  statestore.Repo
	poster TokenPoster
	logger zerolog.Logger

	state sessionState

	// authState is the pending authorization nonce. It correlates the
	// outbound authorization request with its callback and is single-use:
	// cleared on first comparison so a stale callback cannot be replayed.
	authState string

	// loginRedirect is the route the user agent is sent to after a
	// successful login. Overridable per Login call.
	loginRedirect string

	// authorizationURL is the URL most recently built by Login.
	authorizationURL string

	newID   func() string
	nowFunc func() time.Time
}

// Option customizes a Session at construction.
type Option func(*Session)

// WithTokenPoster replaces the HTTP collaborator used for token-endpoint
// calls.
func WithTokenPoster(p TokenPoster) Option {
	return func(s *Session) { s.poster = p }
}

// WithLogger replaces the session's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithIDGenerator replaces the random identifier generator used for the
// authorization nonce and per-call request IDs.
func WithIDGenerator(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

// WithNowFunc overrides the session's clock.
func WithNowFunc(f func() time.Time) Option {
	return func(s *Session) { s.nowFunc = f }
}

// New creates a Session from the given configuration and state store. When
// caching is enabled and a persisted record exists it is restored and, if
// stale but refreshable, renewed before first use. When caching is disabled
// any stale persisted record is deleted.
func New(ctx context.Context, cfg Config, store statestore.Repo, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("[graphsession.New] invalid configuration: %w", err)
	}
	cfg.Scopes = cfg.normalizeScopes()

	s := &Session{
		cfg:           cfg,
		store:         store,
		poster:        &HTTPTokenPoster{},
		logger:        log.Logger,
		loginRedirect: "/",
		newID:         uuid.NewString,
		nowFunc:       func() time.Time { return NowTimeFunc() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.restore(ctx)
	return s, nil
}

// Config returns a copy of the session's configuration, with scopes
// normalized.
func (s *Session) Config() Config {
	cfg := s.cfg
	cfg.Scopes = append([]string(nil), s.cfg.Scopes...)
	return cfg
}

// Login asks the user to authenticate with the authority. With caching
// enabled a silent SSO attempt runs first and, when it yields a logged-in
// session, the interactive redirect is skipped entirely. Otherwise the user
// agent is redirected to the authorization endpoint with a fresh single-use
// state nonce.
//
// postLoginRoute, when non-empty, is the route to redirect to after the user
// is authenticated.
func (s *Session) Login(w http.ResponseWriter, r *http.Request, postLoginRoute string) {
	if postLoginRoute != "" {
		s.loginRedirect = postLoginRoute
	}

	if s.cfg.CacheState && s.SilentSSO(r.Context()) && s.LoggedIn() {
		http.Redirect(w, r, s.loginRedirect, http.StatusFound)
		return
	}

	s.authState = s.newID()

	params := url.Values{}
	params.Set("response_type", string(oauth2.CodeResponseType))
	params.Set("client_id", s.cfg.ClientID)
	params.Set("redirect_uri", s.cfg.RedirectURI)
	params.Set("scope", strings.Join(s.cfg.Scopes, " "))
	params.Set("state", s.authState)
	params.Set("prompt", string(oauth2.SelectAccountPrompt))

	s.authorizationURL = s.cfg.AuthEndpoint + "?" + params.Encode()
	http.Redirect(w, r, s.authorizationURL, http.StatusFound)
}

// AuthorizationURL returns the authorization URL most recently built by
// Login, or "" when no interactive login has been started.
func (s *Session) AuthorizationURL() string {
	return s.authorizationURL
}

// HandleCallback completes the authorization code flow. It must be invoked
// by the route bound to the configured redirect URI.
//
// A state mismatch is fatal for the flow attempt and returned as
// errors.ErrStateMismatch with session state untouched. A transport failure
// talking to the token endpoint propagates to the caller. A token response
// lacking an access token is not an error: the session resets to logged out
// and the user agent receives an unauthorized response; callers observe the
// outcome via LoggedIn.
func (s *Session) HandleCallback(w http.ResponseWriter, r *http.Request) error {
	// Verify that this authorization attempt originated here, by comparing
	// the received state with the nonce issued by Login.
	state := r.FormValue("state")
	if s.authState == "" {
		return errors.ErrStateNotFound
	}
	if state != s.authState {
		return errors.Wrapf(errors.ErrStateMismatch, "sent %q, received %q", s.authState, state)
	}
	s.authState = "" // single use, clear before anything else

	code := r.FormValue("code")
	if code == "" {
		return errors.ErrMissingCode
	}

	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("grant_type", string(oauth2.AuthorizationCodeGrant))
	form.Set("code", code)
	form.Set("redirect_uri", s.cfg.RedirectURI)

	body, err := s.poster.PostForm(r.Context(), s.cfg.TokenEndpoint, form)
	if err != nil {
		return fmt.Errorf("authorization code exchange: %w", err)
	}

	saved, err := s.saveToken(body)
	if err != nil {
		return fmt.Errorf("authorization code exchange: %w", err)
	}
	if !saved {
		http.Error(w, "login failed", http.StatusUnauthorized)
		return nil
	}

	http.Redirect(w, r, s.loginRedirect, http.StatusFound)
	return nil
}

// Logout clears the session state and removes the durable copy. If
// redirectTo is non-empty the user agent is redirected there; otherwise the
// logged-in status is just cleared.
func (s *Session) Logout(w http.ResponseWriter, r *http.Request, redirectTo string) {
	s.reset()
	if redirectTo != "" {
		http.Redirect(w, r, redirectTo, http.StatusFound)
	}
}

// SilentSSO attempts to establish a logged-in session without user
// interaction. It returns true when the current access token is still valid
// (no network call), or when a refresh token is present, in which case a
// refresh exchange is performed and true is reported regardless of its
// outcome. Callers must check LoggedIn before trusting the session for a
// security-sensitive action, since a failed refresh leaves it logged out
// even though this returned true.
func (s *Session) SilentSSO(ctx context.Context) bool {
	if s.SecondsUntilExpiry() > 0 {
		return true // current token is valid
	}

	if s.state.refreshToken != nil {
		if err := s.refreshAccessToken(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("silent SSO refresh failed")
		}
		return true
	}

	return false // no silent SSO possible at this time
}

// EnsureValid verifies that the current access token is valid for at least
// minRemaining and refreshes it when it is not. Intended to be called before
// any authenticated outbound call. A no-op when refresh is disabled or the
// token has enough lifetime left; errors.ErrNoRefreshToken when a refresh is
// needed but no refresh token is held.
func (s *Session) EnsureValid(ctx context.Context, minRemaining time.Duration) error {
	if !s.cfg.RefreshEnable {
		return nil
	}
	if remaining := s.state.tokenExpiresAt.Sub(s.nowFunc()); s.state.accessToken != nil && remaining >= minRemaining {
		return nil
	}
	if s.state.refreshToken == nil {
		return errors.ErrNoRefreshToken
	}
	return s.refreshAccessToken(ctx)
}

// refreshAccessToken performs a refresh-token exchange. Failures route
// through the same save-or-logout path as the authorization code exchange.
func (s *Session) refreshAccessToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("grant_type", string(oauth2.RefreshTokenGrant))
	form.Set("refresh_token", *s.state.refreshToken)

	body, err := s.poster.PostForm(ctx, s.cfg.TokenEndpoint, form)
	if err != nil {
		return fmt.Errorf("refresh token exchange: %w", err)
	}

	saved, err := s.saveToken(body)
	if err != nil {
		return fmt.Errorf("refresh token exchange: %w", err)
	}
	if !saved {
		return errors.ErrNoAccessToken
	}
	return nil
}

// LoggedIn reports whether the session holds a non-expired access token.
func (s *Session) LoggedIn() bool {
	return s.state.loggedIn && s.SecondsUntilExpiry() > 0
}

// SecondsUntilExpiry returns the number of seconds until the current access
// token expires, or 0 when there is no valid token.
func (s *Session) SecondsUntilExpiry() int {
	if s.state.accessToken == nil {
		return 0
	}
	remaining := s.state.tokenExpiresAt.Sub(s.nowFunc())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// AuthorizedHeaders returns the headers required to call Microsoft Graph:
// bearer token, JSON content negotiation and a fresh client-request-id.
// Entries in extra are added to the defaults, overriding on collision.
func (s *Session) AuthorizedHeaders(extra map[string]string) http.Header {
	token := utils.Value(s.state.accessToken)

	headers := http.Header{}
	headers.Set("User-Agent", "go-graph-session")
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	headers.Set("SdkVersion", "go-graph-session")
	headers.Set("x-client-sku", "go-graph-session")
	headers.Set("client-request-id", s.newID())
	headers.Set("return-client-request-id", "true")

	for key, value := range extra {
		headers.Set(key, value)
	}
	return headers
}

// BuildAPIURL converts a relative endpoint (e.g. "me") to a full Graph API
// URL. Absolute URLs pass through unchanged.
func (s *Session) BuildAPIURL(pathOrURL string) string {
	return s.cfg.APIEndpoint(pathOrURL)
}

// GrantedScope returns the space-delimited scope string issued with the
// current access token. Callers relying on elevated scopes must check this
// themselves; a scope mismatch at token save time is only a warning.
func (s *Session) GrantedScope() string {
	return s.state.tokenScope
}

// String returns a short representation of the session.
func (s *Session) String() string {
	return fmt.Sprintf("<Session(loggedin=%t, client_id=%s)>", s.LoggedIn(), s.cfg.ClientID)
}

// reset returns the session to the logged-out default and removes the
// durable copy, so a later restart cannot resurrect the discarded state.
func (s *Session) reset() {
	s.state = sessionState{}
	s.authState = ""
	if s.cfg.CacheState {
		if err := s.store.Delete(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete persisted session state")
		}
	}
}
