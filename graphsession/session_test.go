package graphsession_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-graph-session/graphsession"
	"github.com/jrsteele09/go-graph-session/graphsession/statestore/repofake"
	"github.com/jrsteele09/go-graph-session/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "test-client-1"
	testClientSecret = "test-secret-1"
	testRedirectURI  = "http://localhost:8080/callback"
	testNonce        = "test-nonce-1"
	testHomeRoute    = "/home"

	tokenResponseOK           = `{"access_token":"AT1","token_type":"Bearer","expires_in":3600,"scope":"Mail.Read","refresh_token":"RT1"}`
	tokenResponseNoRefresh    = `{"access_token":"AT2","token_type":"Bearer","expires_in":3600,"scope":"Mail.Read"}`
	tokenResponseInvalidGrant = `{"error":"invalid_grant","error_description":"AADSTS70008: The provided authorization code has expired."}`
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeTokenPoster records token endpoint calls and plays back canned
// responses.
type fakeTokenPoster struct {
	response  string
	err       error
	calls     []url.Values
	endpoints []string
}

func (f *fakeTokenPoster) PostForm(_ context.Context, endpoint string, form url.Values) ([]byte, error) {
	f.calls = append(f.calls, form)
	f.endpoints = append(f.endpoints, endpoint)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.response), nil
}

// testFixture holds a session and its fake collaborators. The clock is
// frozen at testTime and advanced through the now field.
type testFixture struct {
	store   *repofake.FakeStateRepo
	poster  *fakeTokenPoster
	now     time.Time
	session *graphsession.Session
}

func newTestFixture(t *testing.T, mutate func(*graphsession.Config)) *testFixture {
	t.Helper()

	cfg := graphsession.DefaultConfig()
	cfg.ClientID = testClientID
	cfg.ClientSecret = testClientSecret
	cfg.RedirectURI = testRedirectURI
	cfg.Scopes = []string{"Mail.Read"}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &testFixture{
		store:  repofake.NewFakeStateRepo(),
		poster: &fakeTokenPoster{response: tokenResponseOK},
		now:    testTime,
	}

	session, err := graphsession.New(context.Background(), cfg, f.store,
		graphsession.WithTokenPoster(f.poster),
		graphsession.WithNowFunc(func() time.Time { return f.now }),
		graphsession.WithIDGenerator(func() string { return testNonce }),
		graphsession.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	f.session = session
	return f
}

func (f *testFixture) doLogin(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.session.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil), testHomeRoute)
	return rec
}

func (f *testFixture) doCallback(t *testing.T, state, code string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?state="+url.QueryEscape(state)+"&code="+url.QueryEscape(code), nil)
	return rec, f.session.HandleCallback(rec, req)
}

func TestLoginBuildsAuthorizationURL(t *testing.T) {
	f := newTestFixture(t, nil)

	rec := f.doLogin(t)

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	require.Equal(t, f.session.AuthorizationURL(), location)

	parsed, err := url.Parse(location)
	require.NoError(t, err)
	query := parsed.Query()
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, testClientID, query.Get("client_id"))
	require.Equal(t, testRedirectURI, query.Get("redirect_uri"))
	require.Equal(t, testNonce, query.Get("state"))
	require.Equal(t, "select_account", query.Get("prompt"))
	require.Equal(t, "Mail.Read offline_access", query.Get("scope"))
}

func TestLoginSkipsRedirectWhenCachedTokenValid(t *testing.T) {
	f := newTestFixture(t, func(cfg *graphsession.Config) { cfg.CacheState = true })
	f.loginAndCallback(t)

	rec := f.doLogin(t)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, testHomeRoute, rec.Header().Get("Location"))
	// valid token, so no network call beyond the original exchange
	require.Len(t, f.poster.calls, 1)
}

func TestCallbackStateMismatchIsFatal(t *testing.T) {
	f := newTestFixture(t, nil)
	f.doLogin(t)

	_, err := f.doCallback(t, "some-other-state", "code-1")

	require.ErrorIs(t, err, errors.ErrStateMismatch)
	require.False(t, f.session.LoggedIn())
	require.Empty(t, f.poster.calls) // no exchange attempted
}

func TestCallbackWithoutPendingLoginIsFatal(t *testing.T) {
	f := newTestFixture(t, nil)

	_, err := f.doCallback(t, "", "code-1")

	require.ErrorIs(t, err, errors.ErrStateNotFound)
	require.Empty(t, f.poster.calls)
}

func TestCallbackExchangesCodeAndLogsIn(t *testing.T) {
	f := newTestFixture(t, nil)
	f.doLogin(t)

	rec, err := f.doCallback(t, testNonce, "code-1")
	require.NoError(t, err)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, testHomeRoute, rec.Header().Get("Location"))
	require.True(t, f.session.LoggedIn())
	require.Equal(t, 3600, f.session.SecondsUntilExpiry())
	require.Equal(t, "Mail.Read", f.session.GrantedScope())

	require.Len(t, f.poster.calls, 1)
	form := f.poster.calls[0]
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "code-1", form.Get("code"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))
	require.Equal(t, testRedirectURI, form.Get("redirect_uri"))
}

func TestCallbackNonceIsSingleUse(t *testing.T) {
	f := newTestFixture(t, nil)
	f.doLogin(t)

	_, err := f.doCallback(t, testNonce, "code-1")
	require.NoError(t, err)

	// replaying the same callback must fail: the nonce was consumed
	_, err = f.doCallback(t, testNonce, "code-1")
	require.ErrorIs(t, err, errors.ErrStateNotFound)
}

func TestCallbackWithoutAccessTokenLogsOut(t *testing.T) {
	f := newTestFixture(t, func(cfg *graphsession.Config) { cfg.CacheState = true })
	f.poster.response = tokenResponseInvalidGrant
	f.doLogin(t)

	rec, err := f.doCallback(t, testNonce, "code-1")
	require.NoError(t, err) // token-exchange failure is not a caller error

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, f.session.LoggedIn())
	require.Zero(t, f.store.WriteCalls) // nothing persisted on failure
}

func TestCallbackPropagatesTransportError(t *testing.T) {
	f := newTestFixture(t, nil)
	f.poster.err = context.DeadlineExceeded
	f.doLogin(t)

	_, err := f.doCallback(t, testNonce, "code-1")

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogoutResetsSessionAndDeletesState(t *testing.T) {
	f := newTestFixture(t, func(cfg *graphsession.Config) { cfg.CacheState = true })
	f.loginAndCallback(t)
	require.True(t, f.session.LoggedIn())

	rec := httptest.NewRecorder()
	f.session.Logout(rec, httptest.NewRequest(http.MethodGet, "/logout", nil), "/")

	require.Equal(t, http.StatusFound, rec.Code)
	require.False(t, f.session.LoggedIn())
	require.Zero(t, f.session.SecondsUntilExpiry())
	exists, err := f.store.Exists()
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSilentSSOWithValidToken(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	require.True(t, f.session.SilentSSO(context.Background()))
	require.Len(t, f.poster.calls, 1) // no refresh exchange
}

func TestSilentSSORefreshesExpiredToken(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	f.now = f.now.Add(2 * time.Hour) // expire the access token
	require.Zero(t, f.session.SecondsUntilExpiry())

	require.True(t, f.session.SilentSSO(context.Background()))
	require.Len(t, f.poster.calls, 2)
	form := f.poster.calls[1]
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "RT1", form.Get("refresh_token"))
	require.True(t, f.session.LoggedIn())
}

func TestSilentSSOReportsTrueEvenWhenRefreshFails(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	f.now = f.now.Add(2 * time.Hour)
	f.poster.response = tokenResponseInvalidGrant

	// optimistic contract: true because a refresh token was present,
	// but the logged-in flag reflects the real outcome
	require.True(t, f.session.SilentSSO(context.Background()))
	require.False(t, f.session.LoggedIn())
}

func TestSilentSSOWithoutTokens(t *testing.T) {
	f := newTestFixture(t, nil)

	require.False(t, f.session.SilentSSO(context.Background()))
	require.Empty(t, f.poster.calls)
}

func TestEnsureValidRefreshesBelowThreshold(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	f.now = f.now.Add(3599 * time.Second) // 1 second of lifetime left

	require.NoError(t, f.session.EnsureValid(context.Background(), 30*time.Second))
	require.Len(t, f.poster.calls, 2)
	require.Equal(t, "refresh_token", f.poster.calls[1].Get("grant_type"))
	require.Equal(t, 3600, f.session.SecondsUntilExpiry())
}

func TestEnsureValidNoOpAboveThreshold(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	require.NoError(t, f.session.EnsureValid(context.Background(), 30*time.Second))
	require.Len(t, f.poster.calls, 1)
}

func TestEnsureValidNoOpWhenRefreshDisabled(t *testing.T) {
	f := newTestFixture(t, func(cfg *graphsession.Config) { cfg.RefreshEnable = false })
	f.loginAndCallback(t)

	f.now = f.now.Add(2 * time.Hour)

	require.NoError(t, f.session.EnsureValid(context.Background(), 30*time.Second))
	require.Len(t, f.poster.calls, 1)
}

func TestSecondsUntilExpiry(t *testing.T) {
	f := newTestFixture(t, nil)
	require.Zero(t, f.session.SecondsUntilExpiry())

	f.loginAndCallback(t)
	require.Equal(t, 3600, f.session.SecondsUntilExpiry())

	f.now = f.now.Add(time.Hour)
	require.Zero(t, f.session.SecondsUntilExpiry())
	require.False(t, f.session.LoggedIn())
}

func TestAuthorizedHeaders(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	headers := f.session.AuthorizedHeaders(map[string]string{"Prefer": "outlook.timezone=\"UTC\""})

	require.Equal(t, "Bearer AT1", headers.Get("Authorization"))
	require.Equal(t, "application/json", headers.Get("Accept"))
	require.Equal(t, "application/json", headers.Get("Content-Type"))
	require.Equal(t, testNonce, headers.Get("client-request-id"))
	require.Equal(t, "true", headers.Get("return-client-request-id"))
	require.Equal(t, "outlook.timezone=\"UTC\"", headers.Get("Prefer"))
}

func TestAuthorizedHeadersCallerOverridesWin(t *testing.T) {
	f := newTestFixture(t, nil)
	f.loginAndCallback(t)

	headers := f.session.AuthorizedHeaders(map[string]string{"Accept": "text/plain"})

	require.Equal(t, "text/plain", headers.Get("Accept"))
}

func TestSessionString(t *testing.T) {
	f := newTestFixture(t, nil)
	require.Equal(t, "<Session(loggedin=false, client_id=test-client-1)>", f.session.String())

	f.loginAndCallback(t)
	require.Equal(t, "<Session(loggedin=true, client_id=test-client-1)>", f.session.String())
}

// loginAndCallback runs a full successful interactive login.
func (f *testFixture) loginAndCallback(t *testing.T) {
	t.Helper()
	f.doLogin(t)
	_, err := f.doCallback(t, testNonce, "code-1")
	require.NoError(t, err)
}
