package graphsession

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-graph-session/internal/errors"
)

// TokenClaims decodes the claims of the current access token without
// verifying its signature. Graph access tokens are JWTs whose claims (tenant,
// app id, expiry, roles) are useful for diagnostics; verification is the
// resource server's job, not the client's, so none is attempted here.
func (s *Session) TokenClaims() (jwt.MapClaims, error) {
	if s.state.accessToken == nil {
		return nil, errors.ErrNotLoggedIn
	}

	token, _, err := jwt.NewParser().ParseUnverified(*s.state.accessToken, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}
