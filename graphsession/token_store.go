package graphsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-graph-session/oauth2"
)

// stateRecord is the durable subset of the session state. The field set is
// fixed; the authorization nonce is request-scoped and never persisted.
type stateRecord struct {
	AccessToken    *string `json:"access_token"`
	RefreshToken   *string `json:"refresh_token"`
	TokenExpiresAt int64   `json:"token_expires_at"`
	TokenScope     string  `json:"token_scope"`
	LoggedIn       bool    `json:"loggedin"`
}

// saveToken parses a token endpoint response body and saves its fields into
// the session state. A response without an access token forces a logout and
// reports false. Malformed JSON is a transport-level failure and is returned
// as an error without touching the session state.
func (s *Session) saveToken(body []byte) (bool, error) {
	var resp oauth2.TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode token response: %w", err)
	}

	if resp.AccessToken == nil {
		if resp.ErrorCode != "" {
			s.logger.Warn().
				Str("error", resp.ErrorCode).
				Str("error_description", resp.ErrorDescription).
				Msg("token endpoint returned an error")
		}
		s.reset()
		return false, nil
	}

	s.verifyScopes(resp.Scope)
	s.state.accessToken = resp.AccessToken
	s.state.tokenExpiresAt = s.nowFunc().Add(time.Duration(resp.ExpiresIn) * time.Second)
	// A response that omits refresh_token keeps the previously stored one.
	// Providers that do not rotate refresh tokens omit the field on refresh
	// responses; treating omission as a clear would break session persistence.
	if resp.RefreshToken != nil {
		s.state.refreshToken = resp.RefreshToken
	}
	s.state.loggedIn = true

	if err := s.persist(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist session state")
	}
	return true, nil
}

// persist serializes the durable subset of the session state to the state
// store. A no-op when caching is disabled.
func (s *Session) persist() error {
	if !s.cfg.CacheState {
		return nil
	}

	record := stateRecord{
		AccessToken:  s.state.accessToken,
		RefreshToken: s.state.refreshToken,
		TokenScope:   s.state.tokenScope,
		LoggedIn:     s.state.loggedIn,
	}
	if !s.state.tokenExpiresAt.IsZero() {
		record.TokenExpiresAt = s.state.tokenExpiresAt.Unix()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := s.store.Write(data); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}

// restore initializes the session state at construction. With caching
// enabled a prior persisted record is loaded and immediately validated, so a
// stale-but-refreshable token is renewed before first use. With caching
// disabled any persisted residue is deleted. A corrupt or unreadable record
// counts as absent; caching never makes construction fail.
func (s *Session) restore(ctx context.Context) {
	s.state = sessionState{}
	s.authState = ""

	exists, err := s.store.Exists()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to check for persisted session state")
		return
	}

	if !s.cfg.CacheState {
		if exists {
			if err := s.store.Delete(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to delete stale session state")
			}
		}
		return
	}

	if !exists {
		return
	}

	data, err := s.store.Read()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read persisted session state")
		return
	}

	var record stateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn().Err(err).Msg("persisted session state is corrupt, starting logged out")
		return
	}

	s.state.accessToken = record.AccessToken
	s.state.refreshToken = record.RefreshToken
	s.state.tokenScope = record.TokenScope
	s.state.loggedIn = record.LoggedIn
	if record.TokenExpiresAt != 0 {
		s.state.tokenExpiresAt = time.Unix(record.TokenExpiresAt, 0)
	}

	if err := s.EnsureValid(ctx, defaultMinTokenLife); err != nil {
		s.logger.Warn().Err(err).Msg("restored session could not be validated")
	}
}
