package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-graph-session/graphsession"
	"github.com/jrsteele09/go-graph-session/internal/config"
	"github.com/jrsteele09/go-graph-session/internal/errors"
	"github.com/rs/zerolog/log"
)

// Route path constants
const (
	RouteIndex    = "/"
	RouteLogin    = "/login"
	RouteCallback = "/callback"
	RouteLogout   = "/logout"
	RouteGraphMe  = "/graph/me"
)

// minTokenLife is the remaining access-token lifetime required before a
// Graph call is made; below it the token is refreshed first.
const minTokenLife = 30 * time.Second

type app struct {
	mux     *http.ServeMux
	config  config.Config
	session *graphsession.Session
	client  *http.Client
}

func newApp(cfg config.Config, session *graphsession.Session) *app {
	a := &app{
		mux:     http.NewServeMux(),
		config:  cfg,
		session: session,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	a.initRoutes()
	return a
}

func (a *app) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *app) initRoutes() {
	a.mux.HandleFunc("GET "+RouteIndex, ChainMiddleware(a.IndexHandler(), a.LoggingMiddleware, a.RecoverMiddleware))
	a.mux.HandleFunc("GET "+RouteLogin, ChainMiddleware(a.LoginHandler(), a.LoggingMiddleware, a.RecoverMiddleware))
	a.mux.HandleFunc("GET "+RouteCallback, ChainMiddleware(a.CallbackHandler(), a.LoggingMiddleware, a.RecoverMiddleware))
	a.mux.HandleFunc("GET "+RouteLogout, ChainMiddleware(a.LogoutHandler(), a.LoggingMiddleware, a.RecoverMiddleware))
	a.mux.HandleFunc("GET "+RouteGraphMe, ChainMiddleware(a.GraphMeHandler(), a.LoggingMiddleware, a.RecoverMiddleware))
}

// IndexHandler shows the current session status.
func (a *app) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if a.session.LoggedIn() {
			fmt.Fprintf(w, `<p>%s, token expires in %ds</p><p><a href=%q>me</a> | <a href=%q>logout</a></p>`,
				a.session, a.session.SecondsUntilExpiry(), RouteGraphMe, RouteLogout)
			return
		}
		fmt.Fprintf(w, `<p>%s</p><p><a href=%q>login</a></p>`, a.session, RouteLogin)
	}
}

// LoginHandler starts the authorization code flow.
func (a *app) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.session.Login(w, r, RouteGraphMe)
	}
}

// CallbackHandler completes the flow on the registered redirect URI.
func (a *app) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.HandleCallback(w, r); err != nil {
			if errors.Is(err, errors.ErrStateMismatch) || errors.Is(err, errors.ErrStateNotFound) {
				log.Warn().Err(err).Msg("rejected callback")
				http.Error(w, "authorization state mismatch", http.StatusBadRequest)
				return
			}
			log.Err(err).Msg("callback failed")
			http.Error(w, "authentication failed", http.StatusBadGateway)
		}
	}
}

// LogoutHandler clears the session.
func (a *app) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.session.Logout(w, r, RouteIndex)
	}
}

// GraphMeHandler proxies GET /me to Microsoft Graph with the session's
// authorized headers, refreshing the access token first when needed.
func (a *app) GraphMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.EnsureValid(r.Context(), minTokenLife); err != nil {
			log.Warn().Err(err).Msg("token validation failed")
		}
		if !a.session.LoggedIn() {
			http.Redirect(w, r, RouteLogin, http.StatusFound)
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, a.session.BuildAPIURL("me"), nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		req.Header = a.session.AuthorizedHeaders(nil)

		resp, err := a.client.Do(req)
		if err != nil {
			http.Error(w, fmt.Sprintf("graph call failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (a *app) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.config.GetEnv() == "DEV" {
			log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		}
		next(w, r)
	}
}

func (a *app) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered from panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}
